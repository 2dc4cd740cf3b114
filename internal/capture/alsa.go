package capture

import (
	"context"
	"io"
	"os/exec"
	"strconv"
)

type alsaBackend struct{}

func newALSABackend() Backend {
	return &alsaBackend{}
}

func (b *alsaBackend) Name() string {
	return "arecord"
}

func (b *alsaBackend) Available() bool {
	return commandAvailable("arecord")
}

func (b *alsaBackend) Open(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	args := []string{
		"-f", "S16_LE",
		"-r", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-c", strconv.Itoa(defaultChannels(cfg.Channels)),
		"-t", "raw",
	}
	if cfg.Input != "" {
		args = append(args, "-D", cfg.Input)
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, "arecord", args...)
	return startProcessStream(cmd, cfg.Logger)
}

func (b *alsaBackend) ListDevices(ctx context.Context) (string, error) {
	return commandOutput(ctx, "arecord", "-L")
}
