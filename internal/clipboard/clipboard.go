// Package clipboard places finished transcripts on the system clipboard
// by shelling out to whichever clipboard tool the desktop provides.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrUnavailable means no known clipboard tool is installed. Callers
// treat it as a soft failure: the transcript is already printed, the
// copy is a convenience.
var ErrUnavailable = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

// tool describes one clipboard command. detached tools (xclip) own the
// X selection for as long as they run, so they are started and released
// rather than awaited.
type tool struct {
	name     string
	args     []string
	detached bool
}

// CopyTranscript writes text to the system clipboard. On macOS it uses
// pbcopy; on Linux it prefers wl-copy and falls back to xclip.
func CopyTranscript(ctx context.Context, transcript string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tl, err := detectTool()
	if err != nil {
		return err
	}

	if tl.detached {
		return copyDetached(tl, transcript)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, tl.name, tl.args...)
	cmd.Stdin = strings.NewReader(transcript)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy transcript timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy transcript: %w", runErr)
	}

	return nil
}

func detectTool() (tool, error) {
	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("pbcopy"); err == nil {
			return tool{name: "pbcopy"}, nil
		}
		return tool{}, ErrUnavailable
	}

	if _, err := exec.LookPath("wl-copy"); err == nil {
		return tool{name: "wl-copy"}, nil
	}

	if _, err := exec.LookPath("xclip"); err == nil {
		return tool{
			name:     "xclip",
			args:     []string{"-selection", "clipboard", "-in", "-silent"},
			detached: true,
		}, nil
	}

	return tool{}, ErrUnavailable
}

// copyDetached hands the transcript to a tool that keeps serving the
// selection after we return; the process is released, not reaped.
func copyDetached(tl tool, transcript string) error {
	cmd := exec.Command(tl.name, tl.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, transcript); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write transcript to clipboard: %w", err)
	}

	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = cmd.Process.Release()
	return nil
}
