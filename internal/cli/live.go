package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adlib-voice/adlib/internal/audio"
	"github.com/adlib-voice/adlib/internal/clipboard"
	"github.com/adlib-voice/adlib/internal/live"
	"github.com/adlib-voice/adlib/internal/platform"
	"github.com/adlib-voice/adlib/internal/store"
	"github.com/adlib-voice/adlib/internal/whisper"
)

type liveOptions struct {
	save  bool
	title string
}

func newLiveCmd(app *appState) *cobra.Command {
	opts := liveOptions{}

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Transcribe microphone audio live",
		Long:  "Captures the microphone and shows a live transcript. Tentative text self-corrects as\nyou speak and is finalized after a pause. Stop with Enter or Ctrl-C.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runLive(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the recording and transcript to the library")
	cmd.Flags().StringVar(&opts.title, "title", "", "Title for the saved recording")
	cmd.Flags().BoolVar(&app.immediate, "immediate", false, "Start transcribing immediately without waiting for Enter")

	return cmd
}

func (a *appState) runLive(ctx context.Context, opts liveOptions) error {
	engineFn := a.engineFn
	if engineFn == nil {
		engineFn = a.ensureEngineReady
	}
	sourceFn := a.sourceFn
	if sourceFn == nil {
		sourceFn = a.openMicrophone
	}
	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.CopyTranscript
	}

	transcriber, err := engineFn(ctx)
	if err != nil {
		return err
	}

	source, err := sourceFn()
	if err != nil {
		return err
	}

	engine, err := live.NewEngine(a.liveEngineConfig(transcriber))
	if err != nil {
		return err
	}

	if !a.immediate {
		if err := waitForEnter(a.stdin(), os.Stderr, "Press Enter to start live transcription."); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	renderer := newStatusRenderer(os.Stderr, a.progressEnabled())
	session, err := live.NewSession(live.SessionConfig{
		Source:   source,
		Engine:   engine,
		Logger:   a.log(),
		OnUpdate: renderer.render,
	})
	if err != nil {
		return err
	}

	if err := session.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Listening. Stop with Enter or Ctrl-C.")

	enter := make(chan struct{})
	go func() {
		reader := bufio.NewReader(a.stdin())
		if _, err := reader.ReadString('\n'); err == nil {
			close(enter)
		}
	}()

	select {
	case <-ctx.Done():
	case <-enter:
	}

	captured, stopErr := session.Stop()
	renderer.clear()
	if stopErr != nil {
		a.log().Warn("capture ended with error", zap.Error(stopErr))
	}

	snapshot := session.Snapshot()
	transcript := snapshot.Transcript

	fmt.Fprintln(a.outWriter(), transcript)
	if isBlankTranscript(transcript) {
		a.log().Warn(noSpeechHint)
		if !a.copyEmpty {
			return nil
		}
	}

	if err := copyFn(ctx, transcript); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			a.log().Warn("clipboard tool unavailable; transcript left on stdout")
		} else {
			a.log().Warn("failed to copy transcript to clipboard; transcript left on stdout", zap.Error(err))
		}
	} else {
		a.log().Info("transcript copied to clipboard")
	}

	if opts.save {
		if err := a.saveRecording(captured, snapshot.Duration, opts.title, transcript); err != nil {
			return err
		}
	}

	return nil
}

func (a *appState) saveRecording(samples []float32, duration float64, title, transcript string) error {
	dir, err := platform.ResolveRecordingDir()
	if err != nil {
		return err
	}

	library, err := store.Open(dir)
	if err != nil {
		return err
	}

	if strings.TrimSpace(title) == "" {
		title = deriveTitle(transcript, a.now())
	}

	rec := store.NewRecording(title, duration, transcript)
	if err := audio.WriteWAVFile(library.AudioPath(rec), samples, whisper.SampleRate); err != nil {
		return fmt.Errorf("write recording audio: %w", err)
	}
	if err := library.Add(rec); err != nil {
		return err
	}

	a.log().Info("recording saved",
		zap.String("id", rec.ID.String()),
		zap.String("title", rec.Title),
		zap.String("path", library.AudioPath(rec)))
	return nil
}
