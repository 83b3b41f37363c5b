package bubbletea

import "github.com/fwojciec/dispatch/goldmark"

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders a cleaned assistant reply as markdown. Rendering
// is cached per width because the viewport re-renders every block on
// resize and after each turn.
type AssistantBlock struct {
	text     string
	renderer *goldmark.Renderer
	styles   Styles
	byWidth  map[int]string
}

// NewAssistantBlock creates an AssistantBlock.
func NewAssistantBlock(text string, renderer *goldmark.Renderer, styles Styles) *AssistantBlock {
	return &AssistantBlock{
		text:     Sanitize(text),
		renderer: renderer,
		styles:   styles,
		byWidth:  make(map[int]string),
	}
}

func (b *AssistantBlock) View(width int) string {
	if cached, ok := b.byWidth[width]; ok {
		return cached
	}
	label := b.styles.Assistant.Render("Assistant:")
	body := b.renderer.Render(b.text, width)
	if body == "" {
		body = b.styles.Muted.Render("(empty reply)")
	}
	out := label + "\n" + body
	b.byWidth[width] = out
	return out
}
