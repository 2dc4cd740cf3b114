package live

import (
	"strings"
	"unicode"
)

// defaultHallucinationPatterns are lowercase substrings that mark output
// the speech model invented on silence or noise. The list is heuristic
// configuration data, grown from observed model behavior; callers can
// extend it without touching the classifier.
var defaultHallucinationPatterns = []string{
	// Music and audio markers
	"[music", "(music", "♪",
	"[blank_audio]",
	"[silence", "(silence",
	"[audio", "(audio",
	// Non-speech sounds
	"[sigh", "(sigh",
	"[crying", "(crying",
	"[laughter", "(laughter",
	"[applause", "(applause",
	"[noise", "(noise",
	"[inaudible", "(inaudible",
	"[unintelligible", "(unintelligible",
	"[background", "(background",
	"[ambient", "(ambient",
	"[static", "(static",
	"[breathing", "(breathing",
	"[cough", "(cough",
	"[sneeze", "(sneeze",
	"[whisper", "(whisper",
	"[mumbl", "(mumbl",
	"[squeak", "(squeak",
	"[click", "(click",
	"[beep", "(beep",
	"[tone", "(tone",
	"[bell", "(bell",
	"[ring", "(ring",
	// Emotional/dramatic markers
	"[dramatic", "(dramatic",
	"[sad", "(sad",
	"[happy", "(happy",
	"[whistl", "(whistl",
	"[humm", "(humm",
	"[mimick", "(mimick",
	// Foreign language markers
	"[speaking", "(speaking",
	"[foreign", "(foreign",
	// Garbage tokens the model emits on near-silence
	"...",
	"shh", "shhh",
	"hmm", "hush",
	"whoosh", "air whoosh",
	// Short phrases the model favors on silent audio
	"you are the only",
	"i'll show you",
	"yet the few",
	"a few days",
	"and you have",
	"thank you",
	"thanks for",
	"bye", "goodbye",
	"i'm sorry", "sorry",
	"please come",
	"come forward",
	"famous for",
	"you will be",
}

// defaultFillerWords are common words that, alone, carry no content. An
// utterance of three or fewer words made up entirely of these is treated
// as a hallucination.
var defaultFillerWords = []string{
	"and", "the", "a", "an", "to", "of", "in", "is", "it", "you", "i",
}

// HallucinationFilter classifies speech-model output that was invented on
// silence or noise. It is a heuristic classifier, not a grammar.
type HallucinationFilter struct {
	patterns []string
	fillers  map[string]struct{}
}

// NewHallucinationFilter builds a filter from the default pattern list
// plus any extra lowercase substrings from configuration.
func NewHallucinationFilter(extraPatterns ...string) *HallucinationFilter {
	patterns := make([]string, 0, len(defaultHallucinationPatterns)+len(extraPatterns))
	patterns = append(patterns, defaultHallucinationPatterns...)
	for _, p := range extraPatterns {
		if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}

	fillers := make(map[string]struct{}, len(defaultFillerWords))
	for _, w := range defaultFillerWords {
		fillers[w] = struct{}{}
	}

	return &HallucinationFilter{patterns: patterns, fillers: fillers}
}

// IsHallucination reports whether the text looks like model output on
// non-speech audio and should be discarded.
func (f *HallucinationFilter) IsHallucination(text string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))

	for _, pattern := range f.patterns {
		if strings.Contains(trimmed, pattern) {
			return true
		}
	}

	// Very short outputs are punctuation or stray characters.
	if len(trimmed) <= 2 {
		return true
	}

	alpha := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if alpha < 3 {
		return true
	}

	// Repetition artifact: "and... and... and...".
	andCount := strings.Count(trimmed, " and") + strings.Count(trimmed, "and ")
	if andCount >= 3 {
		return true
	}

	words := strings.Fields(trimmed)
	if len(words) <= 3 {
		fillerCount := 0
		for _, w := range words {
			if _, ok := f.fillers[w]; ok {
				fillerCount++
			}
		}
		if fillerCount == len(words) {
			return true
		}
	}

	return false
}
