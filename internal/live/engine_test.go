package live

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adlib-voice/adlib/internal/whisper"
)

// fakeTranscriber returns a configurable transcript and records how
// often inference ran. The mutex lets session tests flip the error
// while the session goroutine is running.
type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []float32) ([]whisper.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return nil, nil
	}
	return []whisper.Segment{{Start: 0, End: float64(len(samples)) / whisper.SampleRate, Text: f.text}}, nil
}

func newTestEngine(t *testing.T, transcriber whisper.Engine) *Engine {
	t.Helper()
	engine, err := NewEngine(Config{
		Transcriber:     transcriber,
		PresetThreshold: 0.02,
	})
	require.NoError(t, err)
	return engine
}

func speech(n int) []float32 {
	return constantSamples(n, 0.1)
}

func TestNewEngineRequiresTranscriber(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(Config{})
	require.Error(t, err)
}

func TestEngineProcessEmptyBuffer(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeTranscriber{text: "hello"})

	result, err := engine.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, NoChange, result)
}

func TestEngineUpdatesTentativeOnSpeech(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeTranscriber{text: "hello world"})

	engine.AddSamples(speech(defaultStepSamples))
	require.True(t, engine.ReadyToProcess())

	result, err := engine.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, Updated, result)
	require.Equal(t, "hello world", engine.Tentative())
	require.Empty(t, engine.Committed())
	require.Equal(t, "hello world", engine.Transcript())
	require.False(t, engine.ReadyToProcess())
}

func TestEngineCommitsAfterSustainedSilence(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "hello world"}
	engine := newTestEngine(t, transcriber)
	ctx := context.Background()

	engine.AddSamples(speech(defaultStepSamples))
	result, err := engine.Process(ctx)
	require.NoError(t, err)
	require.Equal(t, Updated, result)

	// Three consecutive silent cycles finalize the tentative text.
	for cycle := 1; cycle <= defaultSilenceCommitCycles; cycle++ {
		engine.AddSamples(make([]float32, defaultStepSamples))
		result, err = engine.Process(ctx)
		require.NoError(t, err)
		if cycle < defaultSilenceCommitCycles {
			require.Equal(t, NoChange, result)
		}
	}

	require.Equal(t, Committed, result)
	require.Equal(t, "hello world", engine.Committed())
	require.Empty(t, engine.Tentative())
	require.Zero(t, engine.BufferDuration())
	// Silence does not trigger inference.
	require.Equal(t, 1, transcriber.calls)
}

func TestEngineSeparatesCommittedParagraphs(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "first thought"}
	engine := newTestEngine(t, transcriber)
	ctx := context.Background()

	speakAndSilence := func() {
		engine.AddSamples(speech(defaultStepSamples))
		_, err := engine.Process(ctx)
		require.NoError(t, err)
		for i := 0; i < defaultSilenceCommitCycles; i++ {
			engine.AddSamples(make([]float32, defaultStepSamples))
			_, err = engine.Process(ctx)
			require.NoError(t, err)
		}
	}

	speakAndSilence()
	transcriber.text = "second thought"
	speakAndSilence()

	require.Equal(t, "first thought\n\nsecond thought", engine.Committed())
	require.Equal(t, "first thought\n\nsecond thought", engine.Transcript())
}

func TestEngineForcedCommitAtBufferCap(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(Config{
		Transcriber:      &fakeTranscriber{text: "long monologue"},
		PresetThreshold:  0.02,
		StepSamples:      defaultStepSamples,
		MaxBufferSamples: 3 * defaultStepSamples,
	})
	require.NoError(t, err)
	ctx := context.Background()

	engine.AddSamples(speech(defaultStepSamples))
	result, perr := engine.Process(ctx)
	require.NoError(t, perr)
	require.Equal(t, Updated, result)

	engine.AddSamples(speech(defaultStepSamples))
	_, perr = engine.Process(ctx)
	require.NoError(t, perr)

	// The third step fills the buffer to its cap: commit without
	// waiting for silence.
	engine.AddSamples(speech(defaultStepSamples))
	result, perr = engine.Process(ctx)
	require.NoError(t, perr)
	require.Equal(t, Committed, result)
	require.Equal(t, "long monologue", engine.Committed())
	require.Zero(t, engine.BufferDuration())
}

func TestEngineInferenceErrorKeepsState(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{text: "hello", err: errors.New("model busy")}
	engine := newTestEngine(t, transcriber)
	ctx := context.Background()

	engine.AddSamples(speech(defaultStepSamples))
	result, err := engine.Process(ctx)
	require.Error(t, err)
	require.Equal(t, NoChange, result)

	// Buffer and transcript survive the failure; the next cycle
	// retries over the same audio plus whatever arrived since.
	require.InDelta(t, 0.5, engine.BufferDuration(), 1e-9)
	require.Empty(t, engine.Transcript())

	transcriber.err = nil
	engine.AddSamples(speech(defaultStepSamples))
	result, err = engine.Process(ctx)
	require.NoError(t, err)
	require.Equal(t, Updated, result)
	require.Equal(t, "hello", engine.Tentative())
}

func TestEngineFiltersHallucinatedSegments(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeTranscriber{text: "[Music playing]"})

	engine.AddSamples(speech(defaultStepSamples))
	result, err := engine.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, NoChange, result)
	require.Empty(t, engine.Transcript())
}

func TestEngineCalibrationGatesBuffer(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(Config{
		Transcriber: &fakeTranscriber{text: "hello"},
		Calibration: CalibratorConfig{TargetSamples: 3200, ChunkSamples: 1600},
	})
	require.NoError(t, err)

	engine.AddSamples(constantSamples(1600, 0.01))
	require.False(t, engine.IsCalibrated())
	require.False(t, engine.ReadyToProcess())
	require.Zero(t, engine.BufferDuration())

	// Completing calibration pushes the leftover samples through.
	engine.AddSamples(constantSamples(3200, 0.01))
	require.True(t, engine.IsCalibrated())
	require.InDelta(t, 1600.0/whisper.SampleRate, engine.BufferDuration(), 1e-9)
}

func TestEngineFlushCommitsTentative(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeTranscriber{text: "trailing words"})
	ctx := context.Background()

	engine.AddSamples(speech(defaultStepSamples))
	_, err := engine.Process(ctx)
	require.NoError(t, err)

	require.Equal(t, Committed, engine.Flush())
	require.Equal(t, "trailing words", engine.Committed())
	require.Zero(t, engine.BufferDuration())

	// A second flush with nothing pending is a no-op.
	require.Equal(t, NoChange, engine.Flush())
}

func TestEngineClearResetsEverything(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, &fakeTranscriber{text: "hello"})
	ctx := context.Background()

	engine.AddSamples(speech(defaultStepSamples))
	_, err := engine.Process(ctx)
	require.NoError(t, err)
	engine.Flush()

	engine.Clear()
	require.Empty(t, engine.Transcript())
	require.Zero(t, engine.BufferDuration())
	// Clear drops the calibration too; a preset-threshold calibrator
	// starts over from the minimum threshold.
	require.False(t, engine.IsCalibrated())
}
