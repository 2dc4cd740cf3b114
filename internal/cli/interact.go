package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const maxTitleWords = 6

// waitForEnter blocks until the user presses Enter, echoing prompt to w.
func waitForEnter(r io.Reader, w io.Writer, prompt string) error {
	fmt.Fprintln(w, prompt)
	reader := bufio.NewReader(r)
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("wait for enter: %w", err)
	}
	return nil
}

// deriveTitle builds a library title from the transcript's opening words,
// falling back to a timestamp for blank transcripts.
func deriveTitle(transcript string, now time.Time) string {
	words := strings.Fields(strings.TrimSpace(transcript))
	if len(words) == 0 {
		return "Recording " + now.Format("2006-01-02 15:04")
	}
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Join(words, " ")
}
