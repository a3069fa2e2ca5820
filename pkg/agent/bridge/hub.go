package bridge

import (
	"sync"

	"github.com/entrhq/pagepilot/pkg/types"
)

// DefaultSubscriberBuffer is the request buffer of a Hub subscription.
const DefaultSubscriberBuffer = 16

// Hub fans tool requests out to every subscribed executor. It is the
// emission half of the bridge and never blocks the dispatcher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan *types.ToolRequest
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]chan *types.ToolRequest),
	}
}

// Subscribe registers a new executor. The returned cancel func removes
// the subscription and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan *types.ToolRequest, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan *types.ToolRequest, buffer)
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit delivers req to every subscriber. A subscriber whose buffer is
// full misses the request; the dispatcher then times out.
func (h *Hub) Emit(req *types.ToolRequest) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.subs) == 0 {
		bridgeLog.Warnf("No executor subscribed, request %s (%s) will not be answered", req.RequestID, req.Tool)
		return
	}

	for id, ch := range h.subs {
		select {
		case ch <- req:
		default:
			bridgeLog.Warnf("Executor %d is not keeping up, dropped request %s", id, req.RequestID)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
