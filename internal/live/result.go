package live

// Result reports what a single processing cycle changed.
type Result int

const (
	// NoChange means the cycle neither updated nor committed text.
	NoChange Result = iota
	// Updated means the tentative text was revised.
	Updated
	// Committed means the tentative text was finalized and the working
	// buffer cleared.
	Committed
)

func (r Result) String() string {
	switch r {
	case NoChange:
		return "no-change"
	case Updated:
		return "updated"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}
