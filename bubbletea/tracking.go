package bubbletea

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dispatch"
)

func (m Model) handleTrackingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tracking {
		return m, nil
	}
	if msg.Type == tea.KeyEnter {
		number := strings.TrimSpace(m.TrackingInput.Value())
		if number == "" {
			m.trackErr = fmt.Errorf("enter a tracking number: %w", dispatch.ErrValidation)
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.tracking = true
		m.trackCancel = cancel
		m.trackErr = nil
		m.shipment = nil
		m.TrackingInput.Blur()
		return m, tea.Batch(trackShipment(ctx, number, m.trackingDelay), m.Spinner.Tick)
	}
	var cmd tea.Cmd
	m.TrackingInput, cmd = m.TrackingInput.Update(msg)
	return m, cmd
}

func trackShipment(ctx context.Context, number string, delay time.Duration) tea.Cmd {
	return func() tea.Msg {
		status, err := dispatch.TrackShipment(ctx, number, delay)
		return TrackingDoneMsg{Status: status, Err: err}
	}
}

func (m Model) trackingView() string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Track a shipment"))
	b.WriteString("\n\n")
	b.WriteString(m.TrackingInput.View())
	b.WriteString("\n\n")

	switch {
	case m.tracking:
		b.WriteString(m.Spinner.View() + " " + m.styles.Muted.Render("Looking up shipment..."))
	case m.trackErr != nil:
		b.WriteString(m.styles.Error.Render("Error: " + m.trackErr.Error()))
	case m.shipment != nil:
		s := m.shipment
		b.WriteString(fmt.Sprintf("Tracking number  %s\n", s.TrackingNumber))
		b.WriteString("Status           " + m.styles.Success.Render(s.Status) + "\n")
		b.WriteString(fmt.Sprintf("Location         %.4f, %.4f", s.Latitude, s.Longitude))
	default:
		b.WriteString(m.styles.Muted.Render("Enter to look up, Tab to switch view"))
	}
	return b.String()
}
