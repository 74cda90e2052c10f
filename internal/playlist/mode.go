package playlist

// Mode defines the sequencing behavior over the view list.
type Mode int

const (
	ModeLoop Mode = iota
	ModeSingle
	ModeShuffle
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeLoop:
		return "loop"
	case ModeSingle:
		return "single"
	case ModeShuffle:
		return "shuffle"
	default:
		return "loop"
	}
}

// ParseMode parses a persisted mode name. Unknown values fall back to loop.
func ParseMode(s string) Mode {
	switch s {
	case "single":
		return ModeSingle
	case "shuffle":
		return ModeShuffle
	default:
		return ModeLoop
	}
}
