package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Bar       lipgloss.Style
	Card      lipgloss.Style
	TabActive lipgloss.Style
	Tab       lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t dispatch.Theme) Styles {
	return Styles{
		User:      lipgloss.NewStyle().Foreground(ansiColor(t.User)).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(ansiColor(t.Assistant)).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success:   lipgloss.NewStyle().Foreground(ansiColor(t.Success)).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:    lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		Bar:       lipgloss.NewStyle().Foreground(ansiColor(t.Accent)),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ansiColor(t.Panel)).
			Padding(0, 1),
		TabActive: lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true).Underline(true).Padding(0, 1),
		Tab:       lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Padding(0, 1),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
