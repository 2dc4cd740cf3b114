package capture

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
)

type pipewireBackend struct{}

func newPipeWireBackend() Backend {
	return &pipewireBackend{}
}

func (b *pipewireBackend) Name() string {
	return "pw-record"
}

func (b *pipewireBackend) Available() bool {
	return commandAvailable("pw-record")
}

func (b *pipewireBackend) Open(ctx context.Context, cfg Config) (io.ReadCloser, error) {
	args := []string{
		"--rate", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"--channels", strconv.Itoa(defaultChannels(cfg.Channels)),
		"--format", "s16",
		"--raw",
	}
	if cfg.Input != "" {
		args = append(args, "--target", cfg.Input)
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, "pw-record", args...)
	return startProcessStream(cmd, cfg.Logger)
}

func (b *pipewireBackend) ListDevices(ctx context.Context) (string, error) {
	if commandAvailable("pw-cli") {
		return commandOutput(ctx, "pw-cli", "ls", "Node")
	}

	if out, err := commandOutput(ctx, "pw-record", "--list-targets"); err == nil {
		return out, nil
	}

	if commandAvailable("pactl") {
		return commandOutput(ctx, "pactl", "list", "short", "sources")
	}

	return "", errors.New("no pipewire device listing command available")
}
