package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// ErrNoBackendAvailable means no capture tool was found on PATH.
var ErrNoBackendAvailable = errors.New("no capture backend available")

// Config describes the stream a backend should open.
type Config struct {
	SampleRate int
	Channels   int
	Input      string
	Format     string
	Logger     *zap.Logger
}

// Backend opens a raw s16le PCM stream from a system capture tool.
type Backend interface {
	Name() string
	Available() bool
	Open(ctx context.Context, cfg Config) (io.ReadCloser, error)
	ListDevices(ctx context.Context) (string, error)
}

// DefaultBackends returns the capture backends for the given OS in
// preference order.
func DefaultBackends(goos string) []Backend {
	switch goos {
	case "linux":
		return []Backend{newPipeWireBackend(), newALSABackend(), newFFMPEGBackend()}
	case "darwin":
		return []Backend{newFFMPEGBackend()}
	default:
		return nil
	}
}

// SelectBackend picks the preferred backend by name, or the first
// available one when preferred is empty or "auto".
func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}

	if preferred != "" && preferred != "auto" {
		for _, backend := range backends {
			if backend.Name() == preferred {
				if !backend.Available() {
					return nil, fmt.Errorf("requested backend %q is not available", preferred)
				}
				return backend, nil
			}
		}
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	for _, backend := range backends {
		if backend.Available() {
			return backend, nil
		}
	}

	return nil, ErrNoBackendAvailable
}

// NewBackend selects from the host OS default backends.
func NewBackend(preferred string) (Backend, error) {
	backends := DefaultBackends(runtime.GOOS)
	if len(backends) == 0 {
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return SelectBackend(backends, preferred)
}

// processStream adapts a capture tool's stdout into an io.ReadCloser.
// Close interrupts the process and reaps it, treating a signal-caused
// exit as a clean stop.
type processStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *bytes.Buffer
	logger *zap.Logger
}

func startProcessStream(cmd *exec.Cmd, logger *zap.Logger) (io.ReadCloser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open capture pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture process: %w", err)
	}

	return &processStream{cmd: cmd, out: out, stderr: &stderr, logger: logger}, nil
}

func (p *processStream) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *processStream) Close() error {
	stopSignalSent := p.cmd.Process.Signal(os.Interrupt) == nil
	_ = p.out.Close()

	err := p.cmd.Wait()
	if err == nil {
		return nil
	}

	if stopSignalSent {
		p.logger.Debug("capture process exited after stop signal", zap.Error(err))
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			p.logger.Debug("capture process stopped by signal",
				zap.String("signal", status.Signal().String()))
			return nil
		}
	}

	if text := strings.TrimSpace(p.stderr.String()); text != "" {
		return fmt.Errorf("capture process failed: %w (%s)", err, text)
	}
	return fmt.Errorf("capture process failed: %w", err)
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}

func defaultSampleRate(value int) int {
	if value <= 0 {
		return 16000
	}
	return value
}

func defaultChannels(value int) int {
	if value <= 0 {
		return 1
	}
	return value
}
