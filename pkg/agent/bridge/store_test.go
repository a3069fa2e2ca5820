package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RegisterSubmitTake(t *testing.T) {
	store := NewStore(0)

	done, err := store.Register("req-1")
	require.NoError(t, err)

	state, ok := store.lookup("req-1")
	require.True(t, ok)
	assert.Equal(t, StatePending, state)

	matched := store.Submit(types.NewToolResponse("req-1", "Prices found: $19.99"))
	assert.True(t, matched)

	select {
	case <-done:
	default:
		t.Fatal("done channel should be closed after submit")
	}

	result, ok := store.Take("req-1")
	require.True(t, ok)
	assert.Equal(t, "Prices found: $19.99", result)
	assert.Equal(t, 0, store.Len(), "consumed entry must be removed")

	_, ok = store.Take("req-1")
	assert.False(t, ok, "a result is read at most once")
}

func TestStore_RegisterDuplicate(t *testing.T) {
	store := NewStore(0)

	_, err := store.Register("dup")
	require.NoError(t, err)

	_, err = store.Register("dup")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestStore_SubmitDuplicateIsNoop(t *testing.T) {
	store := NewStore(0)
	_, err := store.Register("req")
	require.NoError(t, err)

	assert.True(t, store.Submit(types.NewToolResponse("req", "first")))
	assert.False(t, store.Submit(types.NewToolResponse("req", "second")))

	result, ok := store.Take("req")
	require.True(t, ok)
	assert.Equal(t, "first", result)

	// After consumption the id is unknown; further submits are still harmless.
	assert.False(t, store.Submit(types.NewToolResponse("req", "third")))
	assert.Equal(t, 0, store.Len())
}

func TestStore_SubmitUnknownAndNil(t *testing.T) {
	store := NewStore(0)
	assert.False(t, store.Submit(types.NewToolResponse("nobody", "x")))
	assert.False(t, store.Submit(nil))
	assert.Equal(t, 0, store.Len(), "unknown responses must not accumulate")
}

func TestStore_UnrelatedResponseDoesNotResolve(t *testing.T) {
	store := NewStore(0)
	done, err := store.Register("mine")
	require.NoError(t, err)

	assert.False(t, store.Submit(types.NewToolResponse("theirs", "x")))

	select {
	case <-done:
		t.Fatal("unrelated response resolved the wrong request")
	default:
	}
	state, _ := store.lookup("mine")
	assert.Equal(t, StatePending, state)
}

func TestStore_ExpireThenLateResponse(t *testing.T) {
	store := NewStore(0)
	_, err := store.Register("slow")
	require.NoError(t, err)

	store.Expire("slow")
	state, ok := store.lookup("slow")
	require.True(t, ok)
	assert.Equal(t, StateExpired, state)

	assert.False(t, store.Submit(types.NewToolResponse("slow", "too late")))
	assert.Equal(t, 0, store.Len(), "late response reclaims the tombstone")
}

func TestStore_ExpireResolvedDropsResult(t *testing.T) {
	store := NewStore(0)
	_, err := store.Register("r")
	require.NoError(t, err)
	store.Submit(types.NewToolResponse("r", "unread"))

	store.Expire("r")
	assert.Equal(t, 0, store.Len())
	store.Expire("missing") // no panic
}

func TestStore_Sweep(t *testing.T) {
	store := NewStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Register(id)
		require.NoError(t, err)
	}
	store.Expire("a")
	now = now.Add(30 * time.Second)
	store.Expire("b")

	now = now.Add(31 * time.Second)
	assert.Equal(t, 1, store.Sweep(), "only a is older than the TTL")

	_, ok := store.lookup("a")
	assert.False(t, ok)
	_, ok = store.lookup("b")
	assert.True(t, ok)
	state, ok := store.lookup("c")
	require.True(t, ok)
	assert.Equal(t, StatePending, state, "pending entries are never swept")
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	store := NewStore(time.Millisecond)
	_, err := store.Register("x")
	require.NoError(t, err)
	store.Expire("x")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- store.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStore_RunWithTinyTTL(t *testing.T) {
	store := NewStore(time.Nanosecond)
	_, err := store.Register("tiny")
	require.NoError(t, err)
	store.Expire("tiny")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- store.Run(ctx, 0) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStore_ConcurrentSubmit(t *testing.T) {
	store := NewStore(0)
	_, err := store.Register("race")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	matched := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Submit(types.NewToolResponse("race", "r")) {
				mu.Lock()
				matched++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, matched, "exactly one submission resolves the request")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "resolved", StateResolved.String())
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "state(9)", State(9).String())
}
