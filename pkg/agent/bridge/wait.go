package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/pagepilot/pkg/types"
)

// waitForResult blocks until the request resolves, the timeout fires or
// ctx is done, whichever happens first.
func (d *Dispatcher) waitForResult(ctx context.Context, req *types.ToolRequest, done <-chan struct{}) (string, error) {
	timeout := time.NewTimer(d.timeout)
	defer timeout.Stop()

	select {
	case <-done:
		if result, ok := d.store.Take(req.RequestID); ok {
			return result, nil
		}
		// Expired concurrently by another path; treat like a timeout.
		return "", d.timeoutError(req)

	case <-timeout.C:
		d.store.Expire(req.RequestID)
		bridgeLog.Warnf("Request %s (%s) timed out after %v", req.RequestID, req.Tool, d.timeout)
		return "", d.timeoutError(req)

	case <-ctx.Done():
		d.store.Expire(req.RequestID)
		return "", ctx.Err()
	}
}

func (d *Dispatcher) timeoutError(req *types.ToolRequest) error {
	return fmt.Errorf("%w: %s did not respond within %v", ErrToolTimeout, req.Tool, d.timeout)
}
