package bubbletea

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a failed turn. Classified errors are labelled with
// their kind.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	label := "Error"
	if kind := dispatch.KindOf(b.err); kind != "" {
		label = "Error (" + kind + ")"
	}
	content := b.styles.Error.Render(Sanitize(fmt.Sprintf("%s: %v", label, b.err)))
	return lipgloss.NewStyle().Width(width).Render(content)
}
