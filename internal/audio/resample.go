package audio

// Resample converts mono samples from one sample rate to another using
// linear interpolation. When the rates match it returns an exact copy.
// Beyond the final input sample the last value is repeated, so short
// buffers never index out of range.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	if len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return nil
	}

	ratio := float64(fromRate) / float64(toRate)
	outputLen := int(float64(len(samples)) / ratio)

	out := make([]float32, 0, outputLen)
	for i := 0; i < outputLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		var sample float32
		if idx+1 < len(samples) {
			sample = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			sample = samples[min(idx, len(samples)-1)]
		}
		out = append(out, sample)
	}

	return out
}
