package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/adlib-voice/adlib/internal/audio"
	"github.com/adlib-voice/adlib/internal/whisper"
	"go.uber.org/zap"
)

const (
	// Process once half a second of new audio has arrived.
	defaultStepSamples = 8000
	// Commit unconditionally once the working buffer holds 30 seconds, to
	// bound memory and per-cycle inference latency.
	defaultMaxBufferSamples = 30 * whisper.SampleRate
	// Consecutive silent cycles before pending text is committed.
	defaultSilenceCommitCycles = 3

	// segmentSeparator joins committed paragraphs and the tentative tail.
	segmentSeparator = "\n\n"
)

// Config assembles a live transcription engine. Transcriber is required;
// everything else has working defaults.
type Config struct {
	Transcriber whisper.Engine
	Logger      *zap.Logger

	StepSamples         int
	MaxBufferSamples    int
	SilenceCommitCycles int
	Calibration         CalibratorConfig
	Filter              *HallucinationFilter

	// PresetThreshold, when positive, skips ambient calibration and uses
	// the given RMS threshold directly.
	PresetThreshold float32
}

// Engine accumulates live audio and maintains a progressively-committed
// transcript. Each processing cycle re-transcribes the entire working
// buffer so no partial word is ever lost; tentative text visibly
// self-corrects as more context arrives and is finalized on sustained
// silence.
//
// Engine is not safe for concurrent use. A Session owns one instance and
// serializes all access; see Session for the concurrent wiring.
type Engine struct {
	transcriber whisper.Engine
	filter      *HallucinationFilter
	calibrator  *Calibrator
	logger      *zap.Logger

	stepSamples         int
	maxBufferSamples    int
	silenceCommitCycles int

	buffer        []float32
	sinceProcess  int
	committed     string
	tentative     string
	silenceCycles int
}

// NewEngine validates cfg and returns a fresh, uncalibrated engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("live engine requires a transcriber")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	filter := cfg.Filter
	if filter == nil {
		filter = NewHallucinationFilter()
	}

	stepSamples := cfg.StepSamples
	if stepSamples <= 0 {
		stepSamples = defaultStepSamples
	}
	maxBufferSamples := cfg.MaxBufferSamples
	if maxBufferSamples <= 0 {
		maxBufferSamples = defaultMaxBufferSamples
	}
	silenceCommitCycles := cfg.SilenceCommitCycles
	if silenceCommitCycles <= 0 {
		silenceCommitCycles = defaultSilenceCommitCycles
	}

	var calibrator *Calibrator
	if cfg.PresetThreshold > 0 {
		calibrator = newPresetCalibrator(cfg.PresetThreshold, cfg.Calibration)
	} else {
		calibrator = NewCalibrator(cfg.Calibration)
	}

	return &Engine{
		transcriber:         cfg.Transcriber,
		filter:              filter,
		calibrator:          calibrator,
		logger:              logger,
		stepSamples:         stepSamples,
		maxBufferSamples:    maxBufferSamples,
		silenceCommitCycles: silenceCommitCycles,
		buffer:              make([]float32, 0, maxBufferSamples),
	}, nil
}

// AddSamples appends resampled 16 kHz audio. While uncalibrated the
// samples feed the calibrator instead of the working buffer; any samples
// beyond the calibration target are pushed through so no audio is lost.
// Never triggers inference.
func (e *Engine) AddSamples(samples []float32) {
	if !e.calibrator.Calibrated() {
		wasCollecting := e.calibrator.Progress() > 0
		leftover := e.calibrator.Feed(samples)
		if e.calibrator.Calibrated() {
			e.logger.Info("vad calibrated",
				zap.Float32("threshold", e.calibrator.Threshold()))
			if len(leftover) > 0 {
				e.buffer = append(e.buffer, leftover...)
				e.sinceProcess += len(leftover)
			}
		} else if wasCollecting && e.calibrator.Progress() == 0 {
			e.logger.Debug("calibration reset, loud audio detected")
		}
		return
	}

	e.buffer = append(e.buffer, samples...)
	e.sinceProcess += len(samples)
}

// ReadyToProcess reports whether enough new audio has arrived since the
// last cycle to make another inference worthwhile. This decouples the
// audio-arrival cadence from the expensive inference cadence.
func (e *Engine) ReadyToProcess() bool {
	return e.calibrator.Calibrated() && e.sinceProcess >= e.stepSamples
}

// Process runs one decision cycle: silence tracking, optional inference
// over the whole working buffer, hallucination filtering, and tentative
// text replacement. A transcription error is returned to the caller with
// all buffer and calibration state intact, so the next cycle can retry
// with more context.
func (e *Engine) Process(ctx context.Context) (Result, error) {
	if len(e.buffer) == 0 {
		return NoChange, nil
	}

	e.sinceProcess = 0

	if len(e.buffer) >= e.maxBufferSamples {
		e.logger.Debug("buffer cap reached, forcing commit",
			zap.Float64("seconds", e.BufferDuration()))
		e.commit()
		return Committed, nil
	}

	// VAD looks only at the freshest step of audio.
	vadWindow := e.buffer
	if len(vadWindow) > e.stepSamples {
		vadWindow = vadWindow[len(vadWindow)-e.stepSamples:]
	}

	if audio.RMS(vadWindow) < e.calibrator.Threshold() {
		e.silenceCycles++
		if e.silenceCycles >= e.silenceCommitCycles && e.tentative != "" {
			e.commit()
			return Committed, nil
		}
		return NoChange, nil
	}

	e.silenceCycles = 0

	segments, err := e.transcriber.Transcribe(ctx, e.buffer)
	if err != nil {
		return NoChange, fmt.Errorf("transcribe working buffer: %w", err)
	}

	text := e.joinSegments(segments)
	if text != "" && text != e.tentative {
		e.tentative = text
		return Updated, nil
	}

	return NoChange, nil
}

// Flush commits any pending tentative text and clears the working buffer.
// Called when a session stops so trailing speech isn't dropped.
func (e *Engine) Flush() Result {
	if e.tentative == "" {
		e.buffer = e.buffer[:0]
		e.sinceProcess = 0
		e.silenceCycles = 0
		return NoChange
	}
	e.commit()
	return Committed
}

// Transcript returns committed plus tentative text, separated by a
// paragraph break.
func (e *Engine) Transcript() string {
	switch {
	case e.committed == "":
		return e.tentative
	case e.tentative == "":
		return e.committed
	default:
		return e.committed + segmentSeparator + e.tentative
	}
}

// Committed returns only the finalized text.
func (e *Engine) Committed() string {
	return e.committed
}

// Tentative returns the live text that may still be revised.
func (e *Engine) Tentative() string {
	return e.tentative
}

// IsCalibrated reports whether ambient calibration has completed.
func (e *Engine) IsCalibrated() bool {
	return e.calibrator.Calibrated()
}

// CalibrationProgress returns calibration completion in [0, 1].
func (e *Engine) CalibrationProgress() float32 {
	return e.calibrator.Progress()
}

// BufferDuration is the working buffer length in seconds.
func (e *Engine) BufferDuration() float64 {
	return float64(len(e.buffer)) / float64(whisper.SampleRate)
}

// Clear resets the engine to its initial, uncalibrated state.
func (e *Engine) Clear() {
	e.buffer = e.buffer[:0]
	e.sinceProcess = 0
	e.committed = ""
	e.tentative = ""
	e.silenceCycles = 0
	e.calibrator.Reset()
}

func (e *Engine) commit() {
	if e.tentative != "" {
		if e.committed != "" {
			e.committed += segmentSeparator
		}
		e.committed += e.tentative
		e.tentative = ""
	}
	e.buffer = e.buffer[:0]
	e.silenceCycles = 0
}

func (e *Engine) joinSegments(segments []whisper.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" || e.filter.IsHallucination(seg.Text) {
			continue
		}
		if b.Len() > 0 && !strings.HasPrefix(seg.Text, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text)
	}
	return strings.TrimSpace(b.String())
}
