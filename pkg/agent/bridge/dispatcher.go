package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/google/uuid"
)

const (
	// PollInterval and PollAttempts describe the wait ceiling the bridge
	// inherited from the browser shell (50 checks, 100ms apart).
	PollInterval = 100 * time.Millisecond
	PollAttempts = 50

	// DefaultTimeout is the time a dispatch waits for its result.
	DefaultTimeout = PollAttempts * PollInterval
)

// ErrToolTimeout is returned when no result arrives before the deadline.
var ErrToolTimeout = errors.New("tool timed out")

// RequestEmitter delivers a tool request to the external executor.
type RequestEmitter func(req *types.ToolRequest)

// Dispatcher sends tool requests through the bridge and waits for their
// results.
type Dispatcher struct {
	store   *Store
	emit    RequestEmitter
	timeout time.Duration
	newID   func() string
}

// DispatcherOption is a function that configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithIDGenerator overrides the correlation id source.
func WithIDGenerator(gen func() string) DispatcherOption {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// NewDispatcher creates a dispatcher that records results in store and
// emits requests through emit.
func NewDispatcher(store *Store, emit RequestEmitter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		emit:    emit,
		timeout: DefaultTimeout,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Timeout returns the configured wait ceiling.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Dispatch executes tool with an optional argument ("" for none) and
// returns the executor's result. It fails with an error wrapping
// ErrToolTimeout when no result arrives in time, or with the context's
// error when ctx ends first.
func (d *Dispatcher) Dispatch(ctx context.Context, tool, arg string) (string, error) {
	requestID := d.newID()

	done, err := d.store.Register(requestID)
	if err != nil {
		return "", err
	}

	req := &types.ToolRequest{
		Tool:      tool,
		Arg:       arg,
		RequestID: requestID,
	}
	bridgeLog.Debugf("Dispatching %s (arg=%q) as request %s", tool, arg, requestID)
	d.emit(req)

	return d.waitForResult(ctx, req, done)
}
