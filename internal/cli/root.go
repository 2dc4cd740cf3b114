package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/adlib-voice/adlib/internal/capture"
	"github.com/adlib-voice/adlib/internal/clipboard"
	"github.com/adlib-voice/adlib/internal/config"
	"github.com/adlib-voice/adlib/internal/live"
	"github.com/adlib-voice/adlib/internal/logging"
	"github.com/adlib-voice/adlib/internal/platform"
	"github.com/adlib-voice/adlib/internal/version"
	"github.com/adlib-voice/adlib/internal/whisper"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	configPath string

	model        string
	modelDir     string
	language     string
	autoDownload bool
	backend      string
	input        string
	inputFormat  string
	copyEmpty    bool
	threshold    float64
	immediate    bool

	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time
	out    io.Writer
	in     io.Reader

	// Injection points for tests.
	engineFn     func(ctx context.Context) (whisper.Engine, error)
	sourceFn     func() (live.Source, error)
	transcribeFn func(ctx context.Context, audioPath string) (string, error)
	copyFn       func(ctx context.Context, value string) error
}

func NewRootCmd() *cobra.Command {
	defaults := config.Default()
	app := &appState{
		model:        defaults.Model,
		language:     defaults.Language,
		backend:      defaults.Backend,
		autoDownload: true,
		now:          time.Now,
		out:          os.Stdout,
		in:           os.Stdin,
	}
	app.engineFn = app.ensureEngineReady
	app.sourceFn = app.openMicrophone
	app.transcribeFn = app.transcribeAudio
	app.copyFn = clipboard.CopyTranscript

	cmd := &cobra.Command{
		Use:           "adlib",
		Short:         "Live voice transcription from the terminal",
		Long:          "adlib captures microphone audio and transcribes it live with a local whisper model.\nSpeech appears as tentative text that self-corrects, then finalizes on pauses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			if err := app.loadConfig(cmd.Flags()); err != nil {
				return err
			}
			app.language = sanitizeLanguage(app.language)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runLive(cmd.Context(), liveOptions{})
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindCaptureBackendFlags(cmd, app)
	bindTranscriptFlags(cmd, app)
	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file path (default: ~/.config/adlib/config.yaml)")
	cmd.Flags().BoolVar(&app.immediate, "immediate", false, "Start transcribing immediately without waiting for Enter")

	cmd.AddCommand(newLiveCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newDevicesCmd())
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators and live status")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.model, "model", app.model, "Model name or model file path")
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.PersistentFlags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindCaptureBackendFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.backend, "backend", app.backend, "Capture backend: auto|pw-record|arecord|ffmpeg")
	cmd.PersistentFlags().StringVar(&app.input, "input", app.input, "Input device (run \"adlib devices\" to list); e.g. node-ID (pw-record), hw:1,0 (arecord)")
	cmd.PersistentFlags().StringVar(&app.inputFormat, "input-format", app.inputFormat, "Input format for ffmpeg backend (pulse|alsa)")
}

func bindTranscriptFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.copyEmpty, "copy-empty", app.copyEmpty, "Copy blank transcripts to clipboard")
	cmd.PersistentFlags().Float64Var(&app.threshold, "vad-threshold", app.threshold, "Fixed speech RMS threshold; 0 means calibrate from ambient noise")
}

// loadConfig reads the optional config file and applies it under any
// flags the user set explicitly.
func (a *appState) loadConfig(flags *pflag.FlagSet) error {
	path, err := platform.ResolveConfigFile(a.configPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if !flags.Changed("model") {
		a.model = cfg.Model
	}
	if !flags.Changed("model-dir") && cfg.ModelDir != "" {
		a.modelDir = cfg.ModelDir
	}
	if !flags.Changed("language") {
		a.language = cfg.Language
	}
	if !flags.Changed("backend") {
		a.backend = cfg.Backend
	}
	if !flags.Changed("input") && cfg.Input != "" {
		a.input = cfg.Input
	}
	if !flags.Changed("vad-threshold") && cfg.VAD.Threshold > 0 {
		a.threshold = float64(cfg.VAD.Threshold)
	}
	return nil
}

// ensureEngineReady resolves the model, downloading it when allowed, and
// verifies the whisper binary works on this machine.
func (a *appState) ensureEngineReady(ctx context.Context) (whisper.Engine, error) {
	model, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return whisper.NewCLIEngine(model.Path, a.language, a.log())
}

func (a *appState) openMicrophone() (live.Source, error) {
	backend, err := capture.NewBackend(a.backend)
	if err != nil {
		return nil, err
	}

	return capture.NewMicrophone(backend, capture.Config{
		SampleRate: whisper.SampleRate,
		Channels:   1,
		Input:      a.input,
		Format:     a.inputFormat,
		Logger:     a.log(),
	}), nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

// liveEngineConfig maps the loaded configuration onto engine settings.
func (a *appState) liveEngineConfig(transcriber whisper.Engine) live.Config {
	vad := a.cfg.VAD
	return live.Config{
		Transcriber:         transcriber,
		Logger:              a.log(),
		MaxBufferSamples:    int(vad.MaxBufferSeconds * whisper.SampleRate),
		SilenceCommitCycles: vad.SilenceCommitCycles,
		Calibration: live.CalibratorConfig{
			TargetSamples: int(vad.CalibrationSeconds * whisper.SampleRate),
			MinThreshold:  vad.MinThreshold,
			Multiplier:    vad.Multiplier,
		},
		Filter:          live.NewHallucinationFilter(a.cfg.HallucinationPatterns...),
		PresetThreshold: float32(a.threshold),
	}
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *appState) stdin() io.Reader {
	if a.in == nil {
		return os.Stdin
	}
	return a.in
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
