package whisper

import (
	"context"
	"strings"
)

// SampleRate is the sample rate the speech model expects.
const SampleRate = 16000

// Segment is one timestamped span of transcribed text. Start and End are
// offsets in seconds from the beginning of the transcribed buffer.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Engine transcribes mono float32 audio at SampleRate.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32) ([]Segment, error)
}

// JoinSegments concatenates segment texts in order, inserting a single
// space between texts that don't already begin with whitespace.
func JoinSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasPrefix(seg.Text, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text)
	}
	return strings.TrimSpace(b.String())
}
