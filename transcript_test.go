package dispatch_test

import (
	"sync"
	"testing"

	"github.com/fwojciec/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_Append(t *testing.T) {
	t.Parallel()

	var tr dispatch.Transcript
	first := tr.Append(dispatch.Message{Role: dispatch.RoleUser, Content: "hi", Sequence: 99})
	second := tr.Append(dispatch.Message{Role: dispatch.RoleAssistant, Content: "hello"})

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_MessagesIsSnapshot(t *testing.T) {
	t.Parallel()

	var tr dispatch.Transcript
	tr.Append(dispatch.Message{Role: dispatch.RoleUser, Content: "one"})
	snap := tr.Messages()

	tr.Append(dispatch.Message{Role: dispatch.RoleAssistant, Content: "two"})
	snap[0].Content = "changed"

	require.Len(t, snap, 1)
	assert.Equal(t, "one", tr.Messages()[0].Content)
	assert.Len(t, tr.Messages(), 2)
}

func TestTranscript_Reset(t *testing.T) {
	t.Parallel()

	var tr dispatch.Transcript
	for range 3 {
		tr.Append(dispatch.Message{Role: dispatch.RoleUser, Content: "x"})
	}
	snap := tr.Messages()
	tr.Reset()

	assert.Equal(t, 0, tr.Len())
	assert.Len(t, snap, 3)
	assert.Equal(t, 1, tr.Append(dispatch.Message{Role: dispatch.RoleUser}).Sequence)
}

func TestTranscript_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	var tr dispatch.Transcript
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(dispatch.Message{Role: dispatch.RoleUser})
		}()
	}
	wg.Wait()

	msgs := tr.Messages()
	require.Len(t, msgs, 50)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Sequence)
	}
}
