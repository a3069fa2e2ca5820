// Package agent provides the browser agent: a bounded ReAct loop that
// alternates language model completions with tool calls executed in an
// external browser context.
//
// The Agent is used directly from this package:
//
//	store := bridge.NewStore(0)
//	dispatcher := bridge.NewDispatcher(store, hub.Emit)
//	ag := agent.New(dispatcher, agent.WithProvider(provider))
//	output, err := ag.Run(ctx, "what is the price?", "https://example.com")
//
// Without a provider the agent runs a deterministic demo that performs a
// single tool call and never contacts a model.
package agent

import (
	"context"

	"github.com/entrhq/pagepilot/pkg/llm"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxIterations caps the number of model completions per Run.
const MaxIterations = 5

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// ToolDispatcher executes a tool by name and returns its textual result.
// An empty arg means the tool takes no argument.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, tool, arg string) (string, error)
}

// EventEmitter receives agent events as they happen.
type EventEmitter func(event *types.AgentEvent)

// Agent runs browser tasks. It holds no per-run state, so one Agent may
// serve concurrent Run calls.
type Agent struct {
	provider   llm.Provider
	dispatcher ToolDispatcher
	emitter    EventEmitter
	tracer     trace.Tracer
}

// Option is a function that configures an Agent.
type Option func(*Agent)

// WithProvider sets the language model. A nil provider selects the demo.
func WithProvider(provider llm.Provider) Option {
	return func(a *Agent) {
		a.provider = provider
	}
}

// WithEventEmitter registers a callback for agent events.
func WithEventEmitter(emitter EventEmitter) Option {
	return func(a *Agent) {
		a.emitter = emitter
	}
}

// WithTracerProvider sets the tracer provider for run spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Agent) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an agent that executes tools through dispatcher.
func New(dispatcher ToolDispatcher, opts ...Option) *Agent {
	a := &Agent{
		dispatcher: dispatcher,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsDemo reports whether the agent runs without a language model.
func (a *Agent) IsDemo() bool {
	return a.provider == nil
}

// Run answers prompt about the page at contextURL and returns the
// transcript of replies and observations separated by blank lines.
//
// Run fails only when the model call fails or ctx ends. Running out of
// iterations returns the partial transcript without an error.
func (a *Agent) Run(ctx context.Context, prompt, contextURL string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.Bool("agent.demo", a.IsDemo()),
		attribute.String("page.url", contextURL),
	))
	defer span.End()

	var (
		output string
		err    error
	)
	if a.IsDemo() {
		agentDebugLog.Infof("Running demo for prompt %q", prompt)
		output, err = a.runDemo(ctx, prompt)
	} else {
		agentDebugLog.Infof("Running agent loop for prompt %q on %s", prompt, contextURL)
		output, err = a.runLoop(ctx, prompt, contextURL)
	}

	if err != nil {
		recordError(span, err)
		agentDebugLog.Errorf("Run failed: %v", err)
		a.emitEvent(types.NewErrorEvent(err))
		return "", err
	}
	return output, nil
}

func (a *Agent) emitEvent(event *types.AgentEvent) {
	if a.emitter != nil {
		a.emitter(event)
	}
}
