package capture

import (
	"math"
	"sync"
)

const (
	// waveformBuckets bounds the rolling waveform used for display.
	waveformBuckets = 96
	// waveformDecimation averages this many appends per waveform bucket,
	// which slows the scroll to a few seconds of visible history.
	waveformDecimation = 4
)

// State is the thread-safe running aggregate of a capture session: the
// raw sample buffer, total duration, a smoothed volume level, a decaying
// peak, and a decimated rolling waveform for visualization. One producer
// (the capture reader) appends; any number of readers take snapshots.
type State struct {
	mu sync.Mutex

	samples    []float32
	sampleRate int

	volume        float32
	peak          float32
	waveform      []float32
	waveformCount int
	waveformSum   float32
}

// NewState returns an empty aggregate for the given sample rate.
func NewState(sampleRate int) *State {
	return &State{
		sampleRate: sampleRate,
		waveform:   make([]float32, 0, waveformBuckets),
	}
}

// Append ingests a block of mono samples, updating duration, volume,
// peak, and the rolling waveform.
func (s *State) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}

	var sumSquares float32
	var blockPeak float32
	for _, v := range samples {
		sumSquares += v * v
		if v < 0 {
			v = -v
		}
		if v > blockPeak {
			blockPeak = v
		}
	}
	rms := sqrt32(sumSquares / float32(len(samples)))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, samples...)

	// Smooth the volume meter and let the peak decay slowly.
	s.volume = s.volume*0.7 + rms*0.3
	s.peak = max(s.peak*0.95, blockPeak)

	s.waveformSum += rms
	s.waveformCount++
	if s.waveformCount >= waveformDecimation {
		s.waveform = append(s.waveform, s.waveformSum/waveformDecimation)
		if len(s.waveform) > waveformBuckets {
			s.waveform = s.waveform[1:]
		}
		s.waveformCount = 0
		s.waveformSum = 0
	}
}

// SampleCount returns the number of samples appended so far.
func (s *State) SampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// Samples returns a copy of everything captured so far.
func (s *State) Samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.samples))
	copy(out, s.samples)
	return out
}

// SamplesSince returns a copy of the samples appended after offset.
// Callers track their own offset to drain incrementally.
func (s *State) SamplesSince(offset int) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 || offset >= len(s.samples) {
		return nil
	}
	out := make([]float32, len(s.samples)-offset)
	copy(out, s.samples[offset:])
	return out
}

// Duration is the captured audio length in seconds.
func (s *State) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(len(s.samples)) / float64(s.sampleRate)
}

// SampleRate returns the rate the samples were captured at.
func (s *State) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Volume returns the smoothed RMS level for metering.
func (s *State) Volume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Peak returns the decaying peak level.
func (s *State) Peak() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Waveform returns a copy of the rolling decimated waveform.
func (s *State) Waveform() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.waveform))
	copy(out, s.waveform)
	return out
}

// Reset discards all accumulated audio and metering state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = s.samples[:0]
	s.volume = 0
	s.peak = 0
	s.waveform = s.waveform[:0]
	s.waveformCount = 0
	s.waveformSum = 0
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
