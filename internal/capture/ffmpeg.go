package capture

import (
	"context"
	"io"
	"os/exec"
	"runtime"
	"strconv"
)

type ffmpegBackend struct{}

func newFFMPEGBackend() Backend {
	return &ffmpegBackend{}
}

func (b *ffmpegBackend) Name() string {
	return "ffmpeg"
}

func (b *ffmpegBackend) Available() bool {
	return commandAvailable("ffmpeg")
}

func (b *ffmpegBackend) Open(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	inputFormat, input := ffmpegInput(cfg.Format, cfg.Input)

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", inputFormat,
		"-i", input,
		"-ac", strconv.Itoa(defaultChannels(cfg.Channels)),
		"-ar", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	return startProcessStream(cmd, cfg.Logger)
}

func (b *ffmpegBackend) ListDevices(ctx context.Context) (string, error) {
	if commandAvailable("pactl") {
		return commandOutput(ctx, "pactl", "list", "short", "sources")
	}
	if commandAvailable("arecord") {
		return commandOutput(ctx, "arecord", "-L")
	}
	// ffmpeg prints device lists to stderr and exits non-zero, so use
	// its probe form only as a last resort.
	out, err := commandOutput(ctx, "ffmpeg", "-hide_banner", "-sources", "pulse")
	if err == nil {
		return out, nil
	}
	return "", err
}

// ffmpegInput maps the configured format and device to ffmpeg's input
// arguments, preferring pulse on linux and avfoundation on macOS.
func ffmpegInput(format, input string) (string, string) {
	if format == "" {
		format = defaultFFMPEGFormat()
	}
	if input == "" {
		switch format {
		case "avfoundation":
			input = ":0"
		default:
			input = "default"
		}
	}
	return format, input
}

func defaultFFMPEGFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	default:
		return "pulse"
	}
}
