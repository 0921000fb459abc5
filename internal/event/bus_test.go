package event

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	return NewBus(zerolog.Nop(), nil)
}

func suggestion(project string) SuggestionPayload {
	return SuggestionPayload{
		Content:   "use dependency injection for testability",
		Category:  "architecture",
		Reason:    "repeated gap in reviews",
		ProjectID: project,
		Agent:     "CodeGenerator",
		Timestamp: time.Now().UTC(),
	}
}

func TestEmit_DeliversToListener(t *testing.T) {
	b := testBus()

	var got Event
	b.Register(KindSuggestion, func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})

	b.Emit(context.Background(), suggestion("P1"))

	require.Equal(t, KindSuggestion, got.Kind)
	require.False(t, got.EmittedAt.IsZero())
	payload, ok := got.Payload.(SuggestionPayload)
	require.True(t, ok)
	assert.Equal(t, "P1", payload.ProjectID)
	assert.Equal(t, "CodeGenerator", payload.Agent)
}

func TestEmit_RegistrationOrder(t *testing.T) {
	b := testBus()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.Register(KindSuggestion, func(context.Context, Event) error {
			order = append(order, i)
			return nil
		})
	}

	b.Emit(context.Background(), suggestion("P1"))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEmit_ListenerErrorIsIsolated(t *testing.T) {
	b := testBus()

	called := false
	b.Register(KindSuggestion, func(context.Context, Event) error {
		return fmt.Errorf("listener exploded")
	})
	b.Register(KindSuggestion, func(context.Context, Event) error {
		called = true
		return nil
	})

	// Must not panic and must still reach the second listener.
	b.Emit(context.Background(), suggestion("P1"))
	assert.True(t, called)
}

func TestEmit_ListenerPanicIsIsolated(t *testing.T) {
	b := testBus()

	called := false
	b.Register(KindSuggestion, func(context.Context, Event) error {
		panic("boom")
	})
	b.Register(KindSuggestion, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NotPanics(t, func() {
		b.Emit(context.Background(), suggestion("P1"))
	})
	assert.True(t, called)
}

func TestEmit_NoListenersIsNoOp(t *testing.T) {
	b := testBus()
	require.NotPanics(t, func() {
		b.Emit(context.Background(), suggestion("P1"))
	})
}

func TestEmit_KindSelective(t *testing.T) {
	b := testBus()

	var suggestions, added int
	b.Register(KindSuggestion, func(context.Context, Event) error {
		suggestions++
		return nil
	})
	b.Register(KindKnowledgeAdded, func(context.Context, Event) error {
		added++
		return nil
	})

	b.Emit(context.Background(), suggestion("P1"))
	b.Emit(context.Background(), KnowledgeAddedPayload{EntryID: "e1", ProjectID: "P1"})

	assert.Equal(t, 1, suggestions)
	assert.Equal(t, 1, added)
}

func TestListenerCount(t *testing.T) {
	b := testBus()
	assert.Equal(t, 0, b.ListenerCount(KindSuggestion))

	b.Register(KindSuggestion, func(context.Context, Event) error { return nil })
	b.Register(KindSuggestion, func(context.Context, Event) error { return nil })
	assert.Equal(t, 2, b.ListenerCount(KindSuggestion))
	assert.Equal(t, 0, b.ListenerCount(KindKnowledgeAdded))
}
