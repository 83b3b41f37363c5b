package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

const minWrapWidth = 10

// writer walks one parsed document.
type writer struct {
	styles styles
	source []byte
	buf    bytes.Buffer
}

func (w *writer) sub() *writer {
	return &writer{styles: w.styles, source: w.source}
}

func (w *writer) blocks(parent ast.Node, width int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, width)
		if n.NextSibling() != nil {
			w.buf.WriteString("\n")
		}
	}
}

func (w *writer) block(node ast.Node, width int) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped("", w.inline(n), width)
	case *ast.Heading:
		w.wrapped("", w.styles.heading.Render(w.inline(n)), width)
	case *ast.FencedCodeBlock:
		if lang := string(n.Language(w.source)); lang != "" {
			w.buf.WriteString(w.styles.muted.Render(lang) + "\n")
		}
		w.code(n)
	case *ast.CodeBlock:
		w.code(n)
	case *ast.Blockquote:
		inner := w.sub()
		inner.blocks(n, max(width-2, minWrapWidth))
		bar := w.styles.muted.Render("┃") + " "
		for _, line := range strings.Split(strings.TrimRight(inner.buf.String(), "\n"), "\n") {
			w.buf.WriteString(bar + line + "\n")
		}
	case *ast.List:
		w.list(n, width, 0)
	case *ast.ThematicBreak:
		w.buf.WriteString(w.styles.muted.Render(strings.Repeat("─", min(width, defaultWidth))) + "\n")
	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := range lines.Len() {
			seg := lines.At(i)
			w.buf.Write(seg.Value(w.source))
		}
	default:
		w.blocks(node, width)
	}
}

func (w *writer) code(n ast.Node) {
	gutter := w.styles.muted.Render("│") + " "
	lines := n.Lines()
	for i := range lines.Len() {
		seg := lines.At(i)
		w.buf.WriteString(gutter + strings.TrimRight(string(seg.Value(w.source)), "\n") + "\n")
	}
}

func (w *writer) list(n *ast.List, width, depth int) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.List:
				w.list(in, width, depth+1)
				continue
			case *ast.Paragraph, *ast.TextBlock:
				w.wrapped(prefix, w.inline(in), width)
			default:
				inner := w.sub()
				inner.block(ic, width-runewidth.StringWidth(prefix))
				w.wrapped(prefix, strings.TrimRight(inner.buf.String(), "\n"), width)
			}
			prefix = strings.Repeat(" ", runewidth.StringWidth(prefix))
		}
	}
}

// wrapped writes content word-wrapped to width, with prefix on the first
// line and matching blank indentation on continuation lines.
func (w *writer) wrapped(prefix, content string, width int) {
	pw := runewidth.StringWidth(prefix)
	wrapped := lipgloss.NewStyle().Width(max(width-pw, minWrapWidth)).Render(content)
	pad := strings.Repeat(" ", pw)
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			w.buf.WriteString(prefix)
		} else {
			w.buf.WriteString(pad)
		}
		w.buf.WriteString(strings.TrimRight(line, " ") + "\n")
	}
}

func (w *writer) inline(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.span(n, &b)
	}
	return b.String()
}

func (w *writer) span(node ast.Node, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(w.source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			b.WriteString(w.styles.italic.Render(w.inline(n)))
		} else {
			b.WriteString(w.styles.bold.Render(w.inline(n)))
		}
	case *east.Strikethrough:
		b.WriteString(w.styles.strike.Render(w.inline(n)))
	case *ast.CodeSpan:
		b.WriteString(w.styles.code.Render(w.inline(n)))
	case *ast.Link:
		b.WriteString(w.styles.underline.Render(w.inline(n)))
		b.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		b.WriteString(w.styles.underline.Render(string(n.URL(w.source))))
	case *ast.Image:
		b.WriteString(w.styles.underline.Render(w.inline(n)))
		b.WriteString(" " + w.styles.muted.Render("("+string(n.Destination)+")"))
	case *ast.RawHTML:
		for i := range n.Segments.Len() {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.source))
		}
	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.span(c, b)
		}
	}
}
