package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adlib-voice/adlib/internal/audio"
	"github.com/adlib-voice/adlib/internal/clipboard"
	"github.com/adlib-voice/adlib/internal/download"
	"github.com/adlib-voice/adlib/internal/whisper"
)

// Files quieter than this are treated as silent and skipped.
const silenceGateDBFS = -65.0

func newTranscribeCmd(app *appState) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			copyFn := app.copyFn
			if copyFn == nil {
				copyFn = clipboard.CopyTranscript
			}

			transcript, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			if isBlankTranscript(transcript) {
				app.log().Warn(noSpeechHint)
			}
			if copyToClipboard {
				if isBlankTranscript(transcript) && !app.copyEmpty {
					return nil
				}

				if err := copyFn(cmd.Context(), transcript); err != nil {
					return err
				}
				app.log().Info("transcript copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy transcript to clipboard")
	return cmd
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}

	samples, sampleRate, err := audio.DecodeWAVFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", audioPath, err)
	}

	if silent, metrics := audio.IsSilent(samples, silenceGateDBFS); silent {
		a.log().Info("audio considered silent; skipping transcription",
			zap.String("audio", audioPath),
			zap.Float64("rms_dbfs", metrics.RMSdBFS),
			zap.Float64("peak_dbfs", metrics.PeakdBFS))
		return blankAudioToken, nil
	}

	samples = audio.Resample(samples, sampleRate, whisper.SampleRate)

	engineFn := a.engineFn
	if engineFn == nil {
		engineFn = a.ensureEngineReady
	}
	engine, err := engineFn(ctx)
	if err != nil {
		return "", err
	}

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("language", a.language),
		zap.Float64("seconds", float64(len(samples))/whisper.SampleRate))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	segments, err := engine.Transcribe(ctx, samples)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return whisper.JoinSegments(segments), nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `adlib setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		ChecksumURL:    resolved.SHA256URL,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
