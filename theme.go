package dispatch

// Theme maps UI roles to ANSI color indices (0-15), so the terminal's own
// palette decides the actual colors.
type Theme struct {
	User      int // user message label
	Assistant int // assistant message label
	Error     int // failed turns, error status
	Success   int // delivered shipments, completed lookups
	Muted     int // status bar, placeholders, help
	Accent    int // headings, active tab, chart bars
	Panel     int // metric card borders
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		User:      4,
		Assistant: 6,
		Error:     1,
		Success:   2,
		Muted:     8,
		Accent:    5,
		Panel:     3,
	}
}
