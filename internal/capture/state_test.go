package capture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateAppendAccumulatesSamples(t *testing.T) {
	t.Parallel()

	state := NewState(16000)
	state.Append(make([]float32, 1600))
	state.Append(make([]float32, 2400))

	require.Equal(t, 4000, state.SampleCount())
	require.Len(t, state.Samples(), 4000)
	require.InDelta(t, 0.25, state.Duration(), 1e-9)
}

func TestStateSamplesSince(t *testing.T) {
	t.Parallel()

	state := NewState(16000)
	state.Append([]float32{1, 2, 3, 4})

	chunk := state.SamplesSince(2)
	require.Equal(t, []float32{3, 4}, chunk)

	require.Empty(t, state.SamplesSince(4))
	require.Empty(t, state.SamplesSince(100))
}

func TestStateVolumeSmoothing(t *testing.T) {
	t.Parallel()

	state := NewState(16000)

	loud := make([]float32, 1600)
	for i := range loud {
		loud[i] = 0.5
	}
	state.Append(loud)

	// Starting from zero, one block moves the smoothed volume to
	// 0.3 * rms.
	require.InDelta(t, 0.3*0.5, float64(state.Volume()), 1e-4)
	require.InDelta(t, 0.5, float64(state.Peak()), 1e-4)

	state.Append(make([]float32, 1600))
	require.Less(t, state.Volume(), float32(0.15))
	require.Less(t, state.Peak(), float32(0.5))
}

func TestStateWaveformBounded(t *testing.T) {
	t.Parallel()

	state := NewState(16000)
	for i := 0; i < 6*waveformBuckets*waveformDecimation; i++ {
		state.Append(make([]float32, 160))
	}

	waveform := state.Waveform()
	require.Len(t, waveform, waveformBuckets)
}

func TestStateReset(t *testing.T) {
	t.Parallel()

	state := NewState(16000)
	loud := make([]float32, 1600)
	for i := range loud {
		loud[i] = 0.5
	}
	state.Append(loud)
	state.Reset()

	require.Zero(t, state.SampleCount())
	require.Zero(t, state.Volume())
	require.Zero(t, state.Peak())
	require.Empty(t, state.Waveform())
}
