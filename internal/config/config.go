// Package config loads the optional adlib configuration file. All
// settings have working defaults; the file only overrides them, and
// command-line flags override the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// VAD tunes voice-activity detection and transcript commit behavior.
type VAD struct {
	// MinThreshold is the RMS floor for the speech threshold.
	MinThreshold float32 `yaml:"min_threshold"`
	// Multiplier scales the measured ambient level into the threshold.
	Multiplier float32 `yaml:"multiplier"`
	// CalibrationSeconds of contiguous quiet audio establish the
	// ambient level.
	CalibrationSeconds float64 `yaml:"calibration_seconds"`
	// Threshold, when set, skips calibration entirely.
	Threshold float32 `yaml:"threshold"`
	// SilenceCommitCycles of detected silence finalize pending text.
	SilenceCommitCycles int `yaml:"silence_commit_cycles"`
	// MaxBufferSeconds bounds the working buffer before a forced commit.
	MaxBufferSeconds float64 `yaml:"max_buffer_seconds"`
}

// Config is the full adlib configuration.
type Config struct {
	// Model is a registry name (tiny, base, small, medium, large-v3) or
	// a path to a GGML model file.
	Model string `yaml:"model"`
	// ModelDir overrides where downloaded models are stored.
	ModelDir string `yaml:"model_dir"`
	// Language is a two-letter code or "auto".
	Language string `yaml:"language"`
	// Backend names the capture tool, or "auto" to probe.
	Backend string `yaml:"backend"`
	// Input is the capture device passed to the backend.
	Input string `yaml:"input"`

	VAD VAD `yaml:"vad"`

	// HallucinationPatterns extends the built-in list of substrings
	// that mark invented model output.
	HallucinationPatterns []string `yaml:"hallucination_patterns"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Model:    "small",
		Language: "auto",
		Backend:  "auto",
		VAD: VAD{
			MinThreshold:        0.02,
			Multiplier:          3.0,
			CalibrationSeconds:  3.0,
			SilenceCommitCycles: 3,
			MaxBufferSeconds:    30.0,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error, it just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges on the tunable settings.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.VAD.MinThreshold < 0 || c.VAD.MinThreshold > 1 {
		return fmt.Errorf("vad.min_threshold %v out of range [0, 1]", c.VAD.MinThreshold)
	}
	if c.VAD.Threshold < 0 || c.VAD.Threshold > 1 {
		return fmt.Errorf("vad.threshold %v out of range [0, 1]", c.VAD.Threshold)
	}
	if c.VAD.Multiplier < 1 {
		return fmt.Errorf("vad.multiplier %v must be at least 1", c.VAD.Multiplier)
	}
	if c.VAD.CalibrationSeconds < 0 || c.VAD.CalibrationSeconds > 60 {
		return fmt.Errorf("vad.calibration_seconds %v out of range [0, 60]", c.VAD.CalibrationSeconds)
	}
	if c.VAD.SilenceCommitCycles < 0 {
		return fmt.Errorf("vad.silence_commit_cycles %d must not be negative", c.VAD.SilenceCommitCycles)
	}
	if c.VAD.MaxBufferSeconds < 0 || c.VAD.MaxBufferSeconds > 300 {
		return fmt.Errorf("vad.max_buffer_seconds %v out of range [0, 300]", c.VAD.MaxBufferSeconds)
	}
	return nil
}
