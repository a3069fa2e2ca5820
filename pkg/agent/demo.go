package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/pagepilot/pkg/agent/action"
	"github.com/entrhq/pagepilot/pkg/types"
)

// demoPlan is the single step the demo performs for a request.
type demoPlan struct {
	action  action.Action
	thought string
	summary string
}

// selectDemoPlan picks a tool by keyword. Earlier keywords win.
func selectDemoPlan(prompt string) demoPlan {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "price"):
		return demoPlan{
			action:  action.Action{Tool: "extract_prices"},
			thought: "I need to look for any prices mentioned on this page.",
			summary: "I found the following pricing information on this page",
		}
	case strings.Contains(p, "table"):
		return demoPlan{
			action:  action.Action{Tool: "scrape_table"},
			thought: "I'll extract any table data from this page.",
			summary: "I extracted the following table data from this page",
		}
	case strings.Contains(p, "search"), strings.Contains(p, "find"):
		return demoPlan{
			action:  action.Action{Tool: "search_dom", Arg: "content"},
			thought: "I need to search the page content for what the user is looking for.",
			summary: "Searching the page content returned",
		}
	default:
		return demoPlan{
			action:  action.Action{Tool: "search_dom", Arg: "html"},
			thought: "I need to understand what this page contains to answer the user's question.",
			summary: "Based on my analysis of the page structure",
		}
	}
}

// runDemo answers without a model: one dispatch wrapped in a fixed
// Thought/Action/Observation/Final Answer transcript.
func (a *Agent) runDemo(ctx context.Context, prompt string) (string, error) {
	plan := selectDemoPlan(prompt)

	observation, err := a.dispatch(ctx, 1, plan.action)
	if err != nil {
		return "", err
	}

	final := fmt.Sprintf("%s %s: %s", FinalAnswerMarker, plan.summary, observation)
	a.emitEvent(types.NewFinalAnswerEvent(1, final).WithMetadata("demo", true))

	return strings.Join([]string{
		"Thought: " + plan.thought,
		action.Marker + " " + plan.action.String(),
		ObservationPrefix + observation,
		"Thought: I have the information I need from the page.",
		final,
	}, "\n\n"), nil
}
