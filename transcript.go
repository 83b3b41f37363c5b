package dispatch

import (
	"slices"
	"sync"
)

// Transcript is an ordered, append-only sequence of messages scoped to one
// session. It is safe for concurrent use; readers get snapshots.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
}

// Append stores msg at the end with the next sequence number and returns the
// stored copy. Any Sequence set by the caller is overwritten.
func (t *Transcript) Append(msg Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg.Sequence = len(t.messages) + 1
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns a snapshot of the transcript in append order. Later
// mutations do not affect the returned slice.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// Len returns the number of stored messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Reset replaces the transcript with an empty one. Numbering restarts at 1.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
