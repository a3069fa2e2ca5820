package bridge

import (
	"testing"

	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe(1)
	b, cancelB := hub.Subscribe(1)
	defer cancelA()
	defer cancelB()

	req := &types.ToolRequest{Tool: "scrape_table", RequestID: "1"}
	hub.Emit(req)

	assert.Same(t, req, <-a)
	assert.Same(t, req, <-b)
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Emit(&types.ToolRequest{Tool: "a", RequestID: "1"})
	hub.Emit(&types.ToolRequest{Tool: "b", RequestID: "2"}) // dropped

	got := <-ch
	assert.Equal(t, "1", got.RequestID)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected request %v", extra)
	default:
	}
}

func TestHub_CancelClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(0)
	require.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers())

	// Emitting with no subscribers is a no-op.
	hub.Emit(&types.ToolRequest{Tool: "x", RequestID: "3"})
}
