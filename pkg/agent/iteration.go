package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pagepilot/pkg/agent/action"
	"github.com/entrhq/pagepilot/pkg/agent/bridge"
	"github.com/entrhq/pagepilot/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// runLoop drives the ReAct cycle until a final answer or MaxIterations.
func (a *Agent) runLoop(ctx context.Context, prompt, contextURL string) (string, error) {
	transcript := NewTranscript(buildSystemPrompt(contextURL), prompt)

	for iteration := 1; iteration <= MaxIterations; iteration++ {
		done, err := a.iterate(ctx, transcript, iteration)
		if err != nil {
			return "", err
		}
		if done {
			return transcript.Output(), nil
		}
	}

	agentDebugLog.Infof("Iteration budget of %d exhausted without a final answer", MaxIterations)
	return transcript.Output(), nil
}

// iterate performs one query/decide/act step and reports whether the
// model gave its final answer.
func (a *Agent) iterate(ctx context.Context, transcript *Transcript, iteration int) (bool, error) {
	ctx, span := a.tracer.Start(ctx, "agent.iteration", trace.WithAttributes(
		attribute.Int("agent.iteration", iteration),
	))
	defer span.End()

	reply, err := a.query(ctx, transcript, iteration)
	if err != nil {
		recordError(span, err)
		return false, err
	}
	transcript.Append(reply)

	if strings.Contains(reply.Content, FinalAnswerMarker) {
		span.SetAttributes(attribute.String("agent.outcome", "final_answer"))
		a.emitEvent(types.NewFinalAnswerEvent(iteration, reply.Content))
		return true, nil
	}

	act, err := action.Parse(reply.Content)
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("agent.outcome", "action"))
		if err := a.act(ctx, transcript, iteration, act); err != nil {
			recordError(span, err)
			return false, err
		}
	case strings.Contains(reply.Content, action.Marker):
		span.SetAttributes(attribute.String("agent.outcome", "invalid_action"))
		agentDebugLog.Warnf("Iteration %d: unusable action: %v", iteration, err)
		a.emitEvent(types.NewInvalidActionEvent(iteration, err))
		transcript.AddObservation(invalidActionObservation)
	default:
		span.SetAttributes(attribute.String("agent.outcome", "no_action"))
		agentDebugLog.Debugf("Iteration %d: reply has neither action nor final answer", iteration)
		a.emitEvent(types.NewNoToolCallEvent(iteration))
	}

	return false, nil
}

// query sends the transcript to the model and returns its reply as an
// assistant message.
func (a *Agent) query(ctx context.Context, transcript *Transcript, iteration int) (*types.Message, error) {
	ctx, span := a.tracer.Start(ctx, "agent.llm.complete", trace.WithAttributes(
		attribute.Int("llm.messages", transcript.Len()),
		attribute.String("llm.model", a.provider.GetModel()),
	))
	defer span.End()

	a.emitEvent(types.NewAPICallStartEvent(iteration, transcript.Len()))

	reply, err := a.provider.Complete(ctx, transcript.Messages())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = fmt.Errorf("llm completion failed: %w", err)
		recordError(span, err)
		return nil, err
	}

	a.emitEvent(types.NewAPICallEndEvent(iteration, reply.Content))
	agentDebugLog.Debugf("Iteration %d reply: %s", iteration, reply.Content)
	return types.NewAssistantMessage(reply.Content), nil
}

// act dispatches a parsed action and records its observation. A tool
// timeout becomes the observation; any other dispatch error is returned.
func (a *Agent) act(ctx context.Context, transcript *Transcript, iteration int, act action.Action) error {
	observation, err := a.dispatch(ctx, iteration, act)
	if err != nil {
		return err
	}
	transcript.AddObservation(observation)
	return nil
}

// dispatch runs one tool call. It is shared by the loop and the demo.
func (a *Agent) dispatch(ctx context.Context, iteration int, act action.Action) (string, error) {
	ctx, span := a.tracer.Start(ctx, "agent.tool.dispatch", trace.WithAttributes(
		attribute.String("tool.name", act.Tool),
	))
	defer span.End()
	if act.HasArg() {
		span.SetAttributes(attribute.String("tool.arg", act.Arg))
	}

	a.emitEvent(types.NewToolCallEvent(iteration, act.Tool, act.Arg))

	result, err := a.dispatcher.Dispatch(ctx, act.Tool, act.Arg)
	if err != nil {
		recordError(span, err)
		a.emitEvent(types.NewToolResultErrorEvent(iteration, act.Tool, err))
		if errors.Is(err, bridge.ErrToolTimeout) {
			agentDebugLog.Warnf("Tool %s timed out: %v", act.Tool, err)
			return err.Error(), nil
		}
		return "", fmt.Errorf("dispatch %s: %w", act.Tool, err)
	}

	a.emitEvent(types.NewToolResultEvent(iteration, act.Tool, result))
	return result, nil
}
