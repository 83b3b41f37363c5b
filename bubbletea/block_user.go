package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*UserMessageBlock)(nil)

// UserMessageBlock renders a user message with a "You: " label.
type UserMessageBlock struct {
	text   string
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(text string, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: Sanitize(text), styles: styles}
}

func (b *UserMessageBlock) View(width int) string {
	content := b.styles.User.Render("You: ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}
