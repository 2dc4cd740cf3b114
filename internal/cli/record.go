package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adlib-voice/adlib/internal/audio"
	"github.com/adlib-voice/adlib/internal/platform"
	"github.com/adlib-voice/adlib/internal/whisper"
)

type recordOptions struct {
	duration time.Duration
	output   string
}

func newRecordCmd(app *appState) *cobra.Command {
	opts := &recordOptions{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record audio into a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.recordAudio(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Record duration, e.g. 6s; 0 means interactive start/stop")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output WAV file path")
	cmd.Flags().BoolVar(&app.immediate, "immediate", false, "Start recording immediately without waiting for Enter")

	return cmd
}

func (a *appState) recordAudio(ctx context.Context, opts recordOptions) (string, error) {
	sourceFn := a.sourceFn
	if sourceFn == nil {
		sourceFn = a.openMicrophone
	}
	source, err := sourceFn()
	if err != nil {
		return "", err
	}

	outPath, err := a.recordingOutputPath(opts.output)
	if err != nil {
		return "", err
	}

	interactive := opts.duration <= 0
	if interactive && !a.immediate {
		if err := waitForEnter(a.stdin(), os.Stderr, "Press Enter to start recording."); err != nil {
			return "", err
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		return "", err
	}

	a.log().Info("recording started", zap.String("output", outPath))
	stopProgress := func() {}
	if interactive {
		fmt.Fprintln(os.Stderr, "Recording. Stop with Enter or Ctrl-C.")
		stopProgress = startSpinner(a.progressEnabled(), "Recording")
	} else {
		stopProgress = startDurationProgress(a.progressEnabled(), "Recording", opts.duration)
	}

	enter := make(chan struct{})
	if interactive {
		go func() {
			reader := bufio.NewReader(a.stdin())
			if _, err := reader.ReadString('\n'); err == nil {
				close(enter)
			}
		}()
	}

	var timeout <-chan time.Time
	if !interactive {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
	case <-enter:
	case <-timeout:
	}
	stopProgress()

	samples, stopErr := source.Stop()
	if stopErr != nil {
		a.log().Warn("capture ended with error", zap.Error(stopErr))
	}
	if len(samples) == 0 {
		if stopErr != nil {
			return "", fmt.Errorf("recording produced no audio: %w", stopErr)
		}
		return "", fmt.Errorf("recording produced no audio")
	}

	if err := audio.WriteWAVFile(outPath, samples, whisper.SampleRate); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}

	a.log().Info("recording finished",
		zap.String("path", outPath),
		zap.Float64("seconds", float64(len(samples))/whisper.SampleRate))
	return outPath, nil
}

func (a *appState) recordingOutputPath(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		if err := os.MkdirAll(filepath.Dir(override), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return override, nil
	}

	recordingDir, err := platform.ResolveRecordingDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(recordingDir, 0o755); err != nil {
		return "", fmt.Errorf("create recording directory %s: %w", recordingDir, err)
	}

	return filepath.Join(recordingDir, fmt.Sprintf("recording-%s.wav", a.now().Format("20060102-150405"))), nil
}
