package dispatch

import "strings"

// DefaultStopMarkers are the literal end-of-output tokens stripped from
// generated text.
var DefaultStopMarkers = []string{
	"[END]",
	"<|endoftext|>",
	"<|end_of_text|>",
	"<|eot_id|>",
	"</s>",
}

// Sanitizer strips stop markers from generated text.
type Sanitizer struct {
	markers []string
}

// NewSanitizer creates a Sanitizer for the given markers. Empty markers are
// ignored. With no markers it uses DefaultStopMarkers.
func NewSanitizer(markers ...string) Sanitizer {
	if len(markers) == 0 {
		markers = DefaultStopMarkers
	}
	s := Sanitizer{markers: make([]string, 0, len(markers))}
	for _, m := range markers {
		if m != "" {
			s.markers = append(s.markers, m)
		}
	}
	return s
}

// Clean removes every marker occurrence and trims surrounding whitespace.
// Removal repeats until no marker remains, since deleting one marker can
// splice the text around it into another ("[EN[END]D]"). Clean is
// idempotent.
func (s Sanitizer) Clean(text string) string {
	for {
		before := len(text)
		for _, m := range s.markers {
			text = strings.ReplaceAll(text, m, "")
		}
		if len(text) == before {
			break
		}
	}
	return strings.TrimSpace(text)
}

var defaultSanitizer = NewSanitizer()

// Clean sanitizes text with DefaultStopMarkers.
func Clean(text string) string {
	return defaultSanitizer.Clean(text)
}
