package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adlib-voice/adlib/internal/audio"
	"go.uber.org/zap"
)

// ErrModelNotFound reports a model file that is missing on disk. It is
// fatal for a session: nothing can be transcribed without a model.
var ErrModelNotFound = errors.New("speech model not found")

// CLIEngine transcribes audio by shelling out to a bundled whisper-cli
// binary. Each Transcribe call writes the samples to a temporary WAV file,
// runs the engine with JSON output, and parses the resulting segments.
type CLIEngine struct {
	executable string
	modelPath  string
	language   string
	logger     *zap.Logger
}

// NewCLIEngine locates the whisper-cli binary and verifies the model file
// exists. A missing model is reported as ErrModelNotFound before any audio
// capture starts.
func NewCLIEngine(modelPath, language string, logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	executable, err := resolveExecutable()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrModelNotFound
	}
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("stat model file: %w", err)
	}

	return &CLIEngine{
		executable: executable,
		modelPath:  modelPath,
		language:   strings.TrimSpace(strings.ToLower(language)),
		logger:     logger,
	}, nil
}

// Transcribe runs the engine over the whole sample buffer. It blocks for
// the duration of the inference call and is safe to retry: a failure
// leaves no state behind beyond temp-file cleanup.
func (e *CLIEngine) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	base := filepath.Join(os.TempDir(), fmt.Sprintf("adlib-%d", time.Now().UnixNano()))
	wavPath := base + ".wav"
	jsonPath := base + ".json"

	if err := audio.WriteWAVFile(wavPath, samples, SampleRate); err != nil {
		return nil, fmt.Errorf("write engine input: %w", err)
	}
	defer os.Remove(wavPath)
	defer os.Remove(jsonPath)

	args := []string{"-m", e.modelPath, "-f", wavPath, "-np", "-oj", "-of", base}
	if e.language != "" && e.language != "auto" {
		args = append(args, "-l", e.language)
	}

	cmd := exec.CommandContext(ctx, e.executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	e.logger.Debug("running whisper engine",
		zap.String("engine", e.executable),
		zap.Int("samples", len(samples)),
		zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return nil, fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); reinstall Adlib from an official release or rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", e.executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return nil, fmt.Errorf("whisper engine crashed with an illegal CPU instruction; " +
				"set ADLIB_WHISPER_PATH to a whisper-cli binary built for your CPU")
		}
		return nil, fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	content, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	segments, err := ParseEngineOutput(content)
	if err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	return segments, nil
}

// ParseEngineOutput decodes whisper-cli JSON output into ordered segments.
// Offsets arrive in milliseconds and are converted to seconds.
func ParseEngineOutput(content []byte) ([]Segment, error) {
	var payload struct {
		Transcription []struct {
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
			Text string `json:"text"`
		} `json:"transcription"`
	}

	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(payload.Transcription))
	for _, entry := range payload.Transcription {
		segments = append(segments, Segment{
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  entry.Text,
		})
	}

	return segments, nil
}

func resolveExecutable() (string, error) {
	if override := strings.TrimSpace(os.Getenv("ADLIB_WHISPER_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return "", fmt.Errorf("ADLIB_WHISPER_PATH is not executable: %w", err)
		}
		return override, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve adlib executable path: %w", err)
	}

	for _, candidate := range EnginePathCandidates(selfExe) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("bundled whisper engine not found near %s; reinstall Adlib from an official release, expected at ../libexec/whisper/%s", selfExe, engineBinaryName())
}

// EnginePathCandidates lists the locations searched for the bundled
// whisper-cli binary, relative to the adlib executable.
func EnginePathCandidates(adlibExecutable string) []string {
	binDir := filepath.Dir(adlibExecutable)
	engineName := engineBinaryName()
	hostTarget := fmt.Sprintf("%s_%s", runtime.GOOS, normalizeArch(runtime.GOARCH))

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}

func normalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}
