package dispatch

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the position of a Chat within the current turn.
type State int

const (
	StateIdle               State = iota // No turn in flight.
	StateAwaitingCredential              // Fetching a bearer token.
	StateAwaitingGeneration              // Waiting on the generation endpoint.
	StateDone                            // Turn finished, success or failure.
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCredential:
		return "awaiting_credential"
	case StateAwaitingGeneration:
		return "awaiting_generation"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Turn is the outcome of a successful SubmitTurn call.
type Turn struct {
	Reply   string // cleaned assistant text
	Skipped bool   // input was empty; nothing happened
	Result  GenerationResult
}

// Chat drives one chat session: it records the user's utterance, obtains a
// token, generates a reply, sanitizes it and records it. Turns are
// single-flight; a turn submitted while another runs fails with
// ErrTurnInFlight.
type Chat struct {
	tokens     TokenSource
	generator  Generator
	transcript Transcript

	id         string
	decoding   DecodingParams
	moderation ModerationConfig
	sanitizer  Sanitizer
	logger     *slog.Logger
	now        func() time.Time
	onState    func(State)

	inFlight atomic.Bool
	mu       sync.Mutex // guards state
	state    State
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithSessionID tags log records with the session ID.
func WithSessionID(id string) ChatOption {
	return func(c *Chat) { c.id = id }
}

// WithDecoding overrides DefaultDecoding.
func WithDecoding(p DecodingParams) ChatOption {
	return func(c *Chat) { c.decoding = p }
}

// WithModeration overrides DefaultModeration.
func WithModeration(m ModerationConfig) ChatOption {
	return func(c *Chat) { c.moderation = m }
}

// WithSanitizer overrides the default stop-marker set.
func WithSanitizer(s Sanitizer) ChatOption {
	return func(c *Chat) { c.sanitizer = s }
}

// WithLogger sets the logger. Logging is discarded when not set.
func WithLogger(l *slog.Logger) ChatOption {
	return func(c *Chat) { c.logger = l }
}

// WithClock sets the time source used for message timestamps.
func WithClock(now func() time.Time) ChatOption {
	return func(c *Chat) { c.now = now }
}

// WithStateHandler sets a callback invoked on every state transition. It
// runs on the goroutine that called SubmitTurn.
func WithStateHandler(h func(State)) ChatOption {
	return func(c *Chat) { c.onState = h }
}

// NewChat creates a Chat with an empty transcript.
func NewChat(tokens TokenSource, generator Generator, opts ...ChatOption) *Chat {
	c := &Chat{
		tokens:     tokens,
		generator:  generator,
		decoding:   DefaultDecoding(),
		moderation: DefaultModeration(),
		sanitizer:  NewSanitizer(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SubmitTurn runs one turn. Whitespace-only input is a no-op reported as
// Turn{Skipped: true}. The user's message is recorded before any network
// call, so it survives a failed turn. On failure no assistant message is
// recorded and the classified error is returned unchanged.
func (c *Chat) SubmitTurn(ctx context.Context, userText, systemPrompt string) (Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return Turn{Skipped: true}, nil
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return Turn{}, ErrTurnInFlight
	}
	defer c.inFlight.Store(false)
	defer c.setState(StateIdle)

	start := c.now()
	user := c.transcript.Append(Message{Role: RoleUser, Content: userText, Timestamp: start})
	log := c.logger.With("session", c.id, "seq", user.Sequence)

	c.setState(StateAwaitingCredential)
	cred, err := c.tokens.Token(ctx)
	if err != nil {
		c.setState(StateDone)
		log.Warn("token unavailable", "kind", KindOf(err), "error", err)
		return Turn{}, err
	}

	c.setState(StateAwaitingGeneration)
	req := GenerationRequest{
		Prompt:     ComposePrompt(systemPrompt, userText),
		Decoding:   c.decoding,
		Moderation: c.moderation,
	}
	res, err := c.generator.Generate(ctx, cred.Token, req)
	if err != nil {
		c.setState(StateDone)
		log.Warn("generation failed", "kind", KindOf(err), "error", err)
		return Turn{}, err
	}

	reply := c.sanitizer.Clean(res.Text)
	c.transcript.Append(Message{Role: RoleAssistant, Content: reply, Timestamp: c.now()})
	c.setState(StateDone)
	log.Info("turn complete",
		"generated_tokens", res.GeneratedTokens,
		"stop_reason", res.StopReason,
		"elapsed", c.now().Sub(start))
	return Turn{Reply: reply, Result: res}, nil
}

// Transcript returns a snapshot of the conversation.
func (c *Chat) Transcript() []Message {
	return c.transcript.Messages()
}

// Reset clears the conversation. Sequence numbering restarts at 1. It fails
// with ErrTurnInFlight while a turn is running.
func (c *Chat) Reset() error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer c.inFlight.Store(false)
	c.transcript.Reset()
	c.logger.Info("session reset", "session", c.id)
	return nil
}

// State returns the current state.
func (c *Chat) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether a turn is running.
func (c *Chat) InFlight() bool {
	return c.inFlight.Load()
}

func (c *Chat) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}

// ComposePrompt frames a single turn for a completion-style model. Prior
// turns are not replayed; callers wanting context include it in
// systemPrompt.
func ComposePrompt(systemPrompt, userText string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(userText)
	b.WriteString("\nAssistant:")
	return b.String()
}
