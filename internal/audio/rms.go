package audio

import "math"

// RMS returns the root-mean-square energy of the samples.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}

	return float32(math.Sqrt(sumSquares / float64(len(samples))))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if abs := float32(math.Abs(float64(s))); abs > peak {
			peak = abs
		}
	}
	return peak
}

// Downmix averages interleaved multi-channel frames into mono. Trailing
// partial frames are dropped. A channel count below two returns the input
// unchanged.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float32, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}
