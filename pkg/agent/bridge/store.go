// Package bridge connects the agent to an external, event-driven tool
// executor that can only be reached through asynchronous messages.
//
// The orchestrator emits a types.ToolRequest through a Hub; the executor
// performs the tool out-of-band and later submits a types.ToolResponse
// keyed by the same correlation id to the Store. The Dispatcher ties the
// two halves together and waits for the matching result with a deadline.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

// DefaultResultTTL is how long an expired entry is kept so that a late
// response can still be recognized before it is reclaimed.
const DefaultResultTTL = time.Minute

// MinSweepInterval is the shortest interval Run sweeps at.
const MinSweepInterval = time.Millisecond

// ErrDuplicateRequest is returned when a correlation id is registered twice.
var ErrDuplicateRequest = errors.New("duplicate request id")

var bridgeLog *logging.Logger

func init() {
	var err error
	bridgeLog, err = logging.NewLogger("bridge")
	if err != nil {
		bridgeLog.Warnf("Failed to initialize bridge logger, using stderr fallback: %v", err)
	}
}

// State is the lifecycle state of a pending tool request.
type State int

const (
	// StatePending means the request was emitted and no result has arrived.
	StatePending State = iota
	// StateResolved means a result arrived and has not been consumed yet.
	StateResolved
	// StateExpired means the dispatcher stopped waiting.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// entry is the tagged Pending | Resolved(result) | Expired variant.
type entry struct {
	state     State
	result    string
	done      chan struct{}
	closeOnce sync.Once // done is closed exactly once
	expiredAt time.Time
}

func (e *entry) signal() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

// Store is the tool result store: a map from correlation id to request
// state shared by the dispatcher and the inbound response handler.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store that reclaims expired entries after ttl.
// A non-positive ttl selects DefaultResultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Register creates a pending entry for id. The returned channel is closed
// once a result for id has been submitted.
func (s *Store) Register(id string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequest, id)
	}

	e := &entry{
		state: StatePending,
		done:  make(chan struct{}),
	}
	s.entries[id] = e
	return e.done, nil
}

// Submit records the result for resp.RequestID and reports whether it
// resolved a pending request. Unknown, duplicate and late submissions are
// accepted and have no effect.
func (s *Store) Submit(resp *types.ToolResponse) bool {
	if resp == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[resp.RequestID]
	if !ok {
		bridgeLog.Debugf("Ignoring response for unknown request %s", resp.RequestID)
		return false
	}

	switch e.state {
	case StatePending:
		e.state = StateResolved
		e.result = resp.Result
		e.signal()
		return true
	case StateExpired:
		// The dispatcher gave up; the tombstone has served its purpose.
		delete(s.entries, resp.RequestID)
		bridgeLog.Warnf("Late response for expired request %s discarded", resp.RequestID)
		return false
	default:
		bridgeLog.Debugf("Duplicate response for request %s ignored", resp.RequestID)
		return false
	}
}

// Take consumes a resolved result and removes its entry.
func (s *Store) Take(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.state != StateResolved {
		return "", false
	}
	delete(s.entries, id)
	return e.result, true
}

// Expire marks a pending entry as abandoned. A result that arrived but
// was never consumed is dropped immediately.
func (s *Store) Expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return
	}

	if e.state == StateResolved {
		delete(s.entries, id)
		return
	}

	e.state = StateExpired
	e.expiredAt = s.now()
	e.signal()
}

// lookup returns the state of id.
func (s *Store) lookup(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Len returns the number of tracked entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired entries older than the store's TTL and returns
// how many were reclaimed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.entries {
		if e.state == StateExpired && !e.expiredAt.After(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps the store every interval until ctx is done. A non-positive
// interval selects half the TTL; intervals below MinSweepInterval are raised to it.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	if interval < MinSweepInterval {
		interval = MinSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				bridgeLog.Debugf("Reclaimed %d expired tool requests", n)
			}
		}
	}
}
