package bubbletea

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
)

const cardWidth = 20

func (m Model) dashboardView() string {
	metrics := dispatch.SampleMetrics()
	cards := make([]string, 0, len(metrics))
	for _, mt := range metrics {
		body := m.styles.Muted.Render(mt.Label) + "\n" + m.styles.Accent.Render(strconv.Itoa(mt.Value))
		cards = append(cards, m.styles.Card.Width(cardWidth).Render(body))
	}

	// Four cards do not fit narrow terminals; stack them in rows.
	perRow := max(m.width/(cardWidth+4), 1)
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Shipment overview"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return b.String()
}

const barLabelWidth = 4

func (m Model) analyticsView() string {
	series := dispatch.SampleDeliveries()
	peak := 0
	for _, p := range series {
		peak = max(peak, p.Deliveries)
	}
	// label, space, bar, space, value
	barMax := max(m.width-barLabelWidth-8, 10)

	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Deliveries per month"))
	b.WriteString("\n\n")
	for i, p := range series {
		n := 0
		if peak > 0 {
			n = p.Deliveries * barMax / peak
		}
		b.WriteString(fmt.Sprintf("%-*s ", barLabelWidth, p.Month))
		b.WriteString(m.styles.Bar.Render(strings.Repeat("█", n)))
		b.WriteString(" " + strconv.Itoa(p.Deliveries))
		if i < len(series)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
