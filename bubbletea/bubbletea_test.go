package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/dispatch"
	bt "github.com/fwojciec/dispatch/bubbletea"
	"github.com/fwojciec/dispatch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChat creates a Chat whose generator always replies with reply.
func newChat(reply string) *dispatch.Chat {
	tokens := &mock.TokenSource{TokenFn: func(context.Context) (dispatch.Credential, error) {
		return dispatch.Credential{Token: "tok"}, nil
	}}
	gen := &mock.Generator{GenerateFn: func(context.Context, string, dispatch.GenerationRequest) (dispatch.GenerationResult, error) {
		return dispatch.GenerationResult{Text: reply}, nil
	}}
	return dispatch.NewChat(tokens, gen)
}

// initModel creates a model on the chat tab and sends a WindowSizeMsg to
// initialize the viewport.
func initModel(t *testing.T, chat *dispatch.Chat, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithSize(t, chat, 80, 24, opts...)
}

func initModelWithSize(t *testing.T, chat *dispatch.Chat, width, height int, opts ...bt.Option) bt.Model {
	t.Helper()
	opts = append([]bt.Option{bt.WithTab(bt.TabChat)}, opts...)
	m := bt.New(chat, "You are a logistics assistant.", dispatch.DefaultTheme(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func typeText(t *testing.T, m bt.Model, s string) bt.Model {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestStateFeed_HandleDoesNotBlock(t *testing.T) {
	t.Parallel()

	feed := bt.NewStateFeed(1)
	feed.Handle(dispatch.StateAwaitingCredential)
	feed.Handle(dispatch.StateAwaitingGeneration) // dropped, buffer full

	assert.Equal(t, bt.StateMsg{Turn: 1, State: dispatch.StateAwaitingCredential}, bt.NextState(feed))
	assert.Equal(t, 0, bt.FeedLen(feed))
}

func TestStateFeed_StampsTurns(t *testing.T) {
	t.Parallel()

	feed := bt.NewStateFeed(0)
	for range 2 {
		feed.Handle(dispatch.StateAwaitingCredential)
		feed.Handle(dispatch.StateDone)
		feed.Handle(dispatch.StateIdle)
	}

	var turns []uint64
	for bt.FeedLen(feed) > 0 {
		turns = append(turns, bt.NextState(feed).Turn)
	}
	assert.Equal(t, []uint64{1, 1, 1, 2, 2, 2}, turns)
}

func TestTab_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Dashboard", bt.TabDashboard.String())
	assert.Equal(t, "Analytics", bt.TabAnalytics.String())
	assert.Equal(t, "unknown", bt.Tab(9).String())
}
