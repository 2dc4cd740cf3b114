package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/adlib-voice/adlib/internal/live"
)

const statusTailRunes = 80

// statusRenderer paints a single updating status line on the terminal:
// calibration progress first, then elapsed time plus the tentative tail
// of the transcript. Committed paragraphs scroll up permanently.
type statusRenderer struct {
	w       io.Writer
	enabled bool

	mu            sync.Mutex
	lastWidth     int
	lastCommitted string
}

func newStatusRenderer(w io.Writer, enabled bool) *statusRenderer {
	return &statusRenderer{w: w, enabled: enabled}
}

func (r *statusRenderer) render(s live.Snapshot) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Committed != r.lastCommitted {
		fresh := strings.TrimPrefix(s.Committed, r.lastCommitted)
		fresh = strings.TrimPrefix(fresh, "\n\n")
		r.eraseLocked()
		fmt.Fprintln(r.w, fresh)
		r.lastCommitted = s.Committed
	}

	var line string
	if !s.Calibrated {
		line = fmt.Sprintf("Calibrating ambient noise %3.0f%%", s.CalibrationProgress*100)
	} else {
		line = fmt.Sprintf("[%s] %s", formatClock(s.Duration), tailRunes(s.Tentative, statusTailRunes))
	}

	r.eraseLocked()
	fmt.Fprint(r.w, line)
	r.lastWidth = len(line)
}

func (r *statusRenderer) clear() {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eraseLocked()
}

func (r *statusRenderer) eraseLocked() {
	if r.lastWidth == 0 {
		return
	}
	fmt.Fprintf(r.w, "\r%s\r", strings.Repeat(" ", r.lastWidth))
	r.lastWidth = 0
}

func formatClock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// tailRunes keeps the freshest end of the text on a one-line display.
func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return "…" + string(runes[len(runes)-n:])
}
