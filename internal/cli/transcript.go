package cli

import "strings"

// blankAudioToken is what whisper emits for silent input; the silence
// gate in transcribeAudio produces it too, so both paths are detected
// the same way.
const blankAudioToken = "[BLANK_AUDIO]"

const noSpeechHint = "No speech detected. Check mic mute and selected input device, then try again."

// isBlankTranscript reports whether a transcript carries no speech:
// empty, whitespace only, or nothing but blank-audio tokens.
func isBlankTranscript(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return true
	}

	for _, field := range strings.Fields(trimmed) {
		if !strings.EqualFold(field, blankAudioToken) {
			return false
		}
	}
	return true
}
