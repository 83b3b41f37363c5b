// Package goldmark renders assistant replies, which models often format as
// markdown, to ANSI-styled terminal text. Parsing uses goldmark; styling
// uses lipgloss.
package goldmark

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const defaultWidth = 80

// Renderer turns markdown into styled terminal text. It holds no per-call
// state and is safe for concurrent use.
type Renderer struct {
	parser parser.Parser
	styles styles
}

type styles struct {
	bold      lipgloss.Style
	italic    lipgloss.Style
	strike    lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	underline lipgloss.Style
	code      lipgloss.Style
}

// New creates a Renderer styled with theme.
func New(theme dispatch.Theme) *Renderer {
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	return &Renderer{
		parser: md.Parser(),
		styles: styles{
			bold:      lipgloss.NewStyle().Bold(true),
			italic:    lipgloss.NewStyle().Italic(true),
			strike:    lipgloss.NewStyle().Strikethrough(true),
			heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
			muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
			underline: lipgloss.NewStyle().Underline(true),
			code:      lipgloss.NewStyle().Foreground(ansiColor(theme.Assistant)).Bold(true),
		},
	}
}

// Render parses source and returns styled output word-wrapped to width.
// Code blocks keep their lines as written. A non-positive width means 80.
func (r *Renderer) Render(source string, width int) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	src := []byte(source)
	doc := r.parser.Parse(text.NewReader(src))

	w := &writer{styles: r.styles, source: src}
	w.blocks(doc, width)
	return strings.TrimRight(w.buf.String(), "\n")
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
