package bubbletea

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
	"github.com/mattn/go-runewidth"
)

const (
	chatPlaceholder   = "Ask about a shipment..."
	promptPlaceholder = "System prompt"
)

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingPrompt {
		return m.handlePromptKey(msg)
	}

	switch msg.Type {
	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyCtrlR:
		if m.running {
			return m, nil
		}
		if err := m.chat.Reset(); err != nil {
			m.err = err
			return m, nil
		}
		m.blocks = nil
		m.err = nil
		return m.refreshViewport(), nil

	case tea.KeyCtrlE:
		if m.running {
			return m, nil
		}
		m.editingPrompt = true
		m.draft = m.Input.Value()
		m.Input.Placeholder = promptPlaceholder
		m.Input.SetValue(m.systemPrompt)
		m.Input.CursorEnd()
		return m, nil
	}

	if m.running {
		return m, nil
	}

	// Non-character keys also scroll the transcript; runes only type, so
	// that j/k do not scroll while writing.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.systemPrompt = strings.TrimSpace(m.Input.Value())
		return m.stopEditing(), nil
	case tea.KeyEsc:
		return m.stopEditing(), nil
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) stopEditing() Model {
	m.editingPrompt = false
	m.Input.Placeholder = chatPlaceholder
	m.Input.SetValue(m.draft)
	m.Input.CursorEnd()
	m.draft = ""
	return m
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m = m.refreshViewport()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.turn++
	m.state = dispatch.StateAwaitingCredential
	m.Input.Blur()

	return m, tea.Batch(
		runTurn(ctx, m.chat, text, m.systemPrompt),
		m.Spinner.Tick,
	)
}

// runTurn submits one turn on the command goroutine.
func runTurn(ctx context.Context, chat *dispatch.Chat, text, systemPrompt string) tea.Cmd {
	return func() tea.Msg {
		turn, err := chat.SubmitTurn(ctx, text, systemPrompt)
		return TurnDoneMsg{Turn: turn, Err: err}
	}
}

func (m Model) refreshViewport() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return m.styles.Muted.Render("No messages yet. Ask about a shipment, delivery times or tracking.")
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) chatView() string {
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) statusLine() string {
	var text string
	style := m.styles.Muted
	switch {
	case m.editingPrompt:
		text = "Editing system prompt. Enter to save, Esc to cancel"
	case m.running:
		text = stateLabel(m.state) + " (Ctrl+C to cancel)"
	case m.err != nil:
		style = m.styles.Error
		text = "Last turn failed: " + firstLine(m.err.Error())
	default:
		text = "Enter to send, Ctrl+R to reset, Ctrl+E to edit system prompt, Tab to switch view"
	}

	prefix := ""
	if m.running {
		prefix = m.Spinner.View() + " "
	}
	avail := max(m.width-lipgloss.Width(prefix), 1)
	return prefix + style.Render(runewidth.Truncate(text, avail, "…"))
}

func stateLabel(s dispatch.State) string {
	switch s {
	case dispatch.StateAwaitingCredential:
		return "Authenticating..."
	case dispatch.StateAwaitingGeneration:
		return "Generating..."
	case dispatch.StateDone:
		return "Finishing..."
	default:
		return "Working..."
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
