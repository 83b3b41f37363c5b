// Package bubbletea provides the Bubble Tea TUI for dispatch: a logistics
// dashboard, shipment tracking, a chat with the assistant and delivery
// analytics, one tab each.
package bubbletea

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dispatch"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. When ctx is cancelled the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StateFeed carries chat state transitions from the goroutine running a
// turn to the UI. Pass Handle to [dispatch.WithStateHandler] and the feed to
// [WithStateFeed].
//
// Each transition is stamped with the number of turns started so far, so
// the UI can discard transitions of a turn it has already finished.
type StateFeed struct {
	ch   chan StateMsg
	turn atomic.Uint64
}

// NewStateFeed creates a StateFeed buffering up to size transitions. A
// size below 1 uses 16.
func NewStateFeed(size int) *StateFeed {
	if size < 1 {
		size = 16
	}
	return &StateFeed{ch: make(chan StateMsg, size)}
}

// Handle delivers s without blocking. When the UI falls behind, the
// transition is dropped; the UI catches up on the next one.
func (f *StateFeed) Handle(s dispatch.State) {
	// Every turn that runs starts by awaiting a credential.
	if s == dispatch.StateAwaitingCredential {
		f.turn.Add(1)
	}
	select {
	case f.ch <- StateMsg{Turn: f.turn.Load(), State: s}:
	default:
	}
}

// StateMsg reports a chat state transition of the Turn-th turn.
type StateMsg struct {
	Turn  uint64
	State dispatch.State
}

// TurnDoneMsg signals that a chat turn has completed.
type TurnDoneMsg struct {
	Turn dispatch.Turn
	Err  error
}

// TrackingDoneMsg carries the result of a shipment lookup.
type TrackingDoneMsg struct {
	Status dispatch.ShipmentStatus
	Err    error
}
