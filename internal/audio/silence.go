package audio

import "math"

// SilenceMetrics summarizes the energy of a sample window.
type SilenceMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int
}

// Analyze measures RMS and peak levels of the samples in dBFS.
func Analyze(samples []float32) SilenceMetrics {
	return SilenceMetrics{
		RMSdBFS:  amplitudeToDBFS(float64(RMS(samples))),
		PeakdBFS: amplitudeToDBFS(float64(Peak(samples))),
		Samples:  len(samples),
	}
}

// IsSilent reports whether the samples are quiet enough to skip
// transcription entirely. The peak gate sits 6 dB above the RMS threshold
// so a brief transient can still defeat an otherwise silent recording.
func IsSilent(samples []float32, thresholdDBFS float64) (bool, SilenceMetrics) {
	metrics := Analyze(samples)

	if metrics.Samples == 0 {
		return true, metrics
	}

	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
