package bubbletea

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/dispatch"
	"github.com/fwojciec/dispatch/goldmark"
)

var _ tea.Model = Model{}

// Tab identifies one of the top-level views.
type Tab int

const (
	TabDashboard Tab = iota
	TabTracking
	TabChat
	TabAnalytics
)

var tabNames = [...]string{"Dashboard", "Tracking", "Chat", "Analytics"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "unknown"
	}
	return tabNames[t]
}

const (
	headerHeight = 2 // tab bar and rule
	chatChrome   = 2 // status line and input
)

// Model is the Bubble Tea model for the dispatch TUI.
type Model struct {
	// Input is the chat input. Exported for test access.
	Input textinput.Model
	// TrackingInput is the tracking number input. Exported for test access.
	TrackingInput textinput.Model
	// Viewport is the scrollable chat transcript. Exported for test access.
	Viewport viewport.Model
	// Spinner animates while a turn or lookup runs.
	Spinner spinner.Model

	chat          *dispatch.Chat
	feed          *StateFeed
	renderer      *goldmark.Renderer
	styles        Styles
	systemPrompt  string
	trackingDelay time.Duration

	tab    Tab
	blocks []MessageBlock
	width  int
	height int
	ready  bool

	running       bool
	turn          uint64 // turns submitted, matched against StateMsg.Turn
	cancel        context.CancelFunc
	state         dispatch.State
	err           error
	editingPrompt bool
	draft         string // chat input saved while the system prompt is edited

	tracking    bool
	trackCancel context.CancelFunc
	shipment    *dispatch.ShipmentStatus
	trackErr    error
}

// Option configures a [Model].
type Option func(*Model)

// WithStateFeed subscribes the model to chat state transitions. The same
// feed's Handle method must be installed on the Chat.
func WithStateFeed(f *StateFeed) Option {
	return func(m *Model) { m.feed = f }
}

// WithTrackingDelay sets the simulated shipment lookup latency.
func WithTrackingDelay(d time.Duration) Option {
	return func(m *Model) { m.trackingDelay = d }
}

// WithTab sets the tab shown on start. Default is the dashboard.
func WithTab(t Tab) Option {
	return func(m *Model) { m.tab = t }
}

// New creates a new TUI Model driving chat with the given system prompt.
func New(chat *dispatch.Chat, systemPrompt string, theme dispatch.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = chatPlaceholder
	ti.Prompt = "> "
	ti.CharLimit = 0

	track := textinput.New()
	track.Placeholder = "Tracking number"
	track.Prompt = "# "
	track.CharLimit = 64

	styles := NewStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Accent

	m := Model{
		Input:         ti,
		TrackingInput: track,
		Spinner:       sp,
		chat:          chat,
		renderer:      goldmark.New(theme),
		styles:        styles,
		systemPrompt:  systemPrompt,
		trackingDelay: dispatch.TrackingDelay,
	}
	for _, o := range opts {
		o(&m)
	}
	m = m.focusTab()
	m.focusInput()
	return m
}

// Running returns whether a chat turn is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last turn, if any.
func (m Model) Err() error { return m.err }

// Tab returns the active tab.
func (m Model) Tab() Tab { return m.tab }

// State returns the last chat state reported through the feed.
func (m Model) State() dispatch.State { return m.state }

// SystemPrompt returns the system prompt sent with every turn.
func (m Model) SystemPrompt() string { return m.systemPrompt }

// EditingPrompt reports whether the chat input is editing the system prompt.
func (m Model) EditingPrompt() bool { return m.editingPrompt }

// Shipment returns the last successful lookup, or nil.
func (m Model) Shipment() *dispatch.ShipmentStatus { return m.shipment }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.feed != nil {
		cmds = append(cmds, listenForState(m.feed))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		if m.running && msg.Turn == m.turn {
			m.state = msg.State
		}
		return m, listenForState(m.feed)

	case TurnDoneMsg:
		m.running = false
		m.cancel = nil
		m.state = dispatch.StateIdle
		switch {
		case msg.Err == nil && !msg.Turn.Skipped:
			m.blocks = append(m.blocks, NewAssistantBlock(msg.Turn.Reply, m.renderer, m.styles))
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		}
		m = m.refreshViewport()
		cmd := m.focusInput()
		return m, cmd

	case TrackingDoneMsg:
		m.tracking = false
		m.trackCancel = nil
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.trackErr = msg.Err
			}
			return m, nil
		}
		status := msg.Status
		m.shipment = &status
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.tab == TabChat {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m, cmd = m.updateFocusedInput(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.tab {
	case TabDashboard:
		body = m.dashboardView()
	case TabTracking:
		body = m.trackingView()
	case TabChat:
		body = m.chatView()
	case TabAnalytics:
		body = m.analyticsView()
	}

	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

func (m Model) tabBar() string {
	tabs := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs = append(tabs, m.styles.TabActive.Render(name))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	vpHeight := max(msg.Height-headerHeight-chatChrome, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = max(msg.Width-lipgloss.Width(m.Input.Prompt)-1, 1)
	m.TrackingInput.Width = min(max(msg.Width-lipgloss.Width(m.TrackingInput.Prompt)-1, 1), 40)
	return m.refreshViewport()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running || m.tracking {
			if m.cancel != nil {
				m.cancel()
			}
			if m.trackCancel != nil {
				m.trackCancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyTab:
		if m.editingPrompt {
			return m, nil
		}
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		m = m.focusTab()
		cmd := m.focusInput()
		return m, cmd

	case tea.KeyShiftTab:
		if m.editingPrompt {
			return m, nil
		}
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		m = m.focusTab()
		cmd := m.focusInput()
		return m, cmd
	}

	switch m.tab {
	case TabChat:
		return m.handleChatKey(msg)
	case TabTracking:
		return m.handleTrackingKey(msg)
	}
	return m, nil
}

// focusTab blurs both inputs; focusInput then focuses the active one.
func (m Model) focusTab() Model {
	m.Input.Blur()
	m.TrackingInput.Blur()
	return m
}

// focusInput focuses the active tab's input when it accepts typing.
func (m *Model) focusInput() tea.Cmd {
	switch {
	case m.tab == TabChat && !m.running:
		return m.Input.Focus()
	case m.tab == TabTracking && !m.tracking:
		return m.TrackingInput.Focus()
	}
	return nil
}

func (m Model) updateFocusedInput(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.tab == TabChat && !m.running:
		m.Input, cmd = m.Input.Update(msg)
	case m.tab == TabTracking && !m.tracking:
		m.TrackingInput, cmd = m.TrackingInput.Update(msg)
	}
	return m, cmd
}

func (m Model) busy() bool {
	return m.running || m.tracking
}

// listenForState waits for the next transition on feed.
func listenForState(feed *StateFeed) tea.Cmd {
	if feed == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-feed.ch
		if !ok {
			return nil
		}
		return msg
	}
}
