package live

import "github.com/adlib-voice/adlib/internal/audio"

// Default calibration parameters at 16 kHz.
const (
	defaultCalibrationTarget = 3 * 16000 // 3 seconds of quiet audio
	defaultCalibrationChunk  = 1600      // 100 ms inspection chunks

	// Fixed threshold used to judge "quiet" before the actual ambient
	// level is known.
	defaultQuietThreshold = 0.04
	// Floor for the derived threshold, even in very quiet rooms.
	defaultMinThreshold = 0.02
	// The speech threshold sits this far above the ambient noise floor.
	defaultMultiplier = 3.0
)

// CalibratorConfig tunes ambient-noise calibration. Zero values pick the
// defaults above.
type CalibratorConfig struct {
	TargetSamples  int
	ChunkSamples   int
	QuietThreshold float32
	MinThreshold   float32
	Multiplier     float32
}

func (c CalibratorConfig) withDefaults() CalibratorConfig {
	if c.TargetSamples <= 0 {
		c.TargetSamples = defaultCalibrationTarget
	}
	if c.ChunkSamples <= 0 {
		c.ChunkSamples = defaultCalibrationChunk
	}
	if c.QuietThreshold <= 0 {
		c.QuietThreshold = defaultQuietThreshold
	}
	if c.MinThreshold <= 0 {
		c.MinThreshold = defaultMinThreshold
	}
	if c.Multiplier <= 0 {
		c.Multiplier = defaultMultiplier
	}
	return c
}

// Calibrator measures the ambient noise floor from a contiguous run of
// quiet audio and derives the speech/silence threshold from it. Until
// calibration completes it gates all audio away from the transcription
// buffer. Calibration is pure computation and never fails.
type Calibrator struct {
	cfg        CalibratorConfig
	collected  []float32
	threshold  float32
	calibrated bool
}

// NewCalibrator returns a calibrator in the Collecting state.
func NewCalibrator(cfg CalibratorConfig) *Calibrator {
	cfg = cfg.withDefaults()
	return &Calibrator{
		cfg:       cfg,
		collected: make([]float32, 0, cfg.TargetSamples),
		threshold: cfg.MinThreshold,
	}
}

// newPresetCalibrator returns an already-calibrated calibrator with a
// fixed threshold. Used when the caller wants to skip the quiet-room
// measurement.
func newPresetCalibrator(threshold float32, cfg CalibratorConfig) *Calibrator {
	c := NewCalibrator(cfg)
	if threshold < c.cfg.MinThreshold {
		threshold = c.cfg.MinThreshold
	}
	c.threshold = threshold
	c.calibrated = true
	return c
}

// Calibrated reports whether the threshold has been established.
func (c *Calibrator) Calibrated() bool {
	return c.calibrated
}

// Threshold returns the speech/silence RMS threshold. Only meaningful
// once Calibrated reports true.
func (c *Calibrator) Threshold() float32 {
	return c.threshold
}

// Progress returns calibration completion in [0, 1].
func (c *Calibrator) Progress() float32 {
	if c.calibrated {
		return 1.0
	}
	return float32(len(c.collected)) / float32(c.cfg.TargetSamples)
}

// Feed examines samples in fixed chunks while collecting. A loud chunk
// throws away everything gathered so far: the measurement needs one
// contiguous quiet run, not a quiet average. When the target is reached
// mid-call, the samples after the completing chunk are returned so the
// caller can push them into the transcription buffer; until then Feed
// returns nil and consumes everything.
func (c *Calibrator) Feed(samples []float32) []float32 {
	if c.calibrated {
		return samples
	}

	offset := 0
	for offset < len(samples) {
		chunkEnd := min(offset+c.cfg.ChunkSamples, len(samples))
		chunk := samples[offset:chunkEnd]

		if audio.RMS(chunk) < c.cfg.QuietThreshold {
			c.collected = append(c.collected, chunk...)
			if len(c.collected) >= c.cfg.TargetSamples {
				c.complete()
				return samples[chunkEnd:]
			}
		} else {
			c.collected = c.collected[:0]
		}

		offset = chunkEnd
	}

	return nil
}

// Reset returns the calibrator to the Collecting state.
func (c *Calibrator) Reset() {
	c.collected = c.collected[:0]
	c.threshold = c.cfg.MinThreshold
	c.calibrated = false
}

func (c *Calibrator) complete() {
	ambient := audio.RMS(c.collected)
	c.threshold = max(ambient*c.cfg.Multiplier, c.cfg.MinThreshold)
	c.calibrated = true
	c.collected = nil
}
