package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model: large-v3
language: en
backend: pw-record
vad:
  min_threshold: 0.05
  silence_commit_cycles: 5
hallucination_patterns:
  - "subscribe to my channel"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "large-v3", cfg.Model)
	require.Equal(t, "en", cfg.Language)
	require.Equal(t, "pw-record", cfg.Backend)
	require.InDelta(t, 0.05, float64(cfg.VAD.MinThreshold), 1e-6)
	require.Equal(t, 5, cfg.VAD.SilenceCommitCycles)
	require.Equal(t, []string{"subscribe to my channel"}, cfg.HallucinationPatterns)

	// Untouched settings keep their defaults.
	require.InDelta(t, 3.0, float64(cfg.VAD.Multiplier), 1e-6)
	require.InDelta(t, 3.0, cfg.VAD.CalibrationSeconds, 1e-6)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config file")
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.VAD.MinThreshold = 1.5
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Model = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.VAD.CalibrationSeconds = 120
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.VAD.MaxBufferSeconds = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.VAD.Multiplier = 0.5
	require.Error(t, cfg.Validate())
}
