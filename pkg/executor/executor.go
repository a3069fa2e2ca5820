// Package executor runs browser tool requests on behalf of the agent.
//
// An executor subscribes to tool requests, performs each one and submits
// the result keyed by the request's correlation id:
//
//	requests, cancel := hub.Subscribe(bridge.DefaultSubscriberBuffer)
//	defer cancel()
//
//	err := executor.Serve(ctx, requests, stub.New(), store.Submit)
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
)

var execLog *logging.Logger

func init() {
	var err error
	execLog, err = logging.NewLogger("executor")
	if err != nil {
		execLog.Warnf("Failed to initialize executor logger, using stderr fallback: %v", err)
	}
}

// Handler performs a single tool request and returns its textual result.
// Failures are reported in the result text, as the page would.
type Handler interface {
	Execute(ctx context.Context, req *types.ToolRequest) string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *types.ToolRequest) string

// Execute calls f(ctx, req).
func (f HandlerFunc) Execute(ctx context.Context, req *types.ToolRequest) string {
	return f(ctx, req)
}

// Submitter delivers a result back to the orchestrator and reports
// whether it matched a pending request.
type Submitter func(resp *types.ToolResponse) bool

// Serve executes every request received on requests concurrently and
// submits the results. It returns once requests is closed or ctx is done,
// after in-flight requests have finished.
func Serve(ctx context.Context, requests <-chan *types.ToolRequest, handler Handler, submit Submitter) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(req *types.ToolRequest) {
				defer wg.Done()
				handle(ctx, req, handler, submit)
			}(req)
		}
	}
}

func handle(ctx context.Context, req *types.ToolRequest, handler Handler, submit Submitter) {
	defer func() {
		if r := recover(); r != nil {
			execLog.Errorf("Tool %s panicked: %v", req.Tool, r)
			submit(types.NewToolResponse(req.RequestID, fmt.Sprintf("Error executing %s: %v", req.Tool, r)))
		}
	}()

	execLog.Debugf("Executing %s (arg=%q) for request %s", req.Tool, req.Arg, req.RequestID)
	result := handler.Execute(ctx, req)
	if !submit(types.NewToolResponse(req.RequestID, result)) {
		execLog.Warnf("Result for request %s was not matched", req.RequestID)
	}
}
