package dispatch

import "time"

// Message is one role-tagged entry of a Transcript. Sequence is assigned by
// the Transcript on append and starts at 1.
type Message struct {
	Role      Role
	Content   string
	Sequence  int
	Timestamp time.Time
}
