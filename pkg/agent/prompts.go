package agent

import (
	"fmt"
	"strings"
)

const (
	// FinalAnswerMarker ends a run when it appears anywhere in a reply.
	FinalAnswerMarker = "Final Answer:"

	invalidActionObservation = "Invalid action format. Reply with a line of the form " +
		"`Action: tool_name` or `Action: tool_name(argument)` using one of the available tools, " +
		"or give your `Final Answer:`."
)

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string
	Param       string
	Description string
}

// Signature renders the tool as it appears in an action line.
func (s ToolSpec) Signature() string {
	if s.Param == "" {
		return s.Name
	}
	return fmt.Sprintf("%s(%s)", s.Name, s.Param)
}

// Tools is the catalog the browser executors understand.
var Tools = []ToolSpec{
	{Name: "extract_prices", Description: "Extract all prices from the current page"},
	{Name: "search_dom", Param: "keyword", Description: "Find text matching a keyword and return its context"},
	{Name: "click_button", Param: "selector?", Description: "Click the first visible element matching the CSS selector, or the first button"},
	{Name: "scrape_table", Description: "Extract and return the first table on the page"},
	{Name: "navigate_to", Param: "url", Description: "Open a URL in the browser"},
}

// buildSystemPrompt returns the instruction message for a page.
func buildSystemPrompt(contextURL string) string {
	if contextURL == "" {
		contextURL = "unknown"
	}

	var b strings.Builder
	b.WriteString("You are an intelligent browser assistant embedded in a web browser.\n")
	b.WriteString("You can reason and use tools to help users with tasks on webpages.\n\n")
	fmt.Fprintf(&b, "CURRENT URL: %s\n\n", contextURL)

	b.WriteString("AVAILABLE TOOLS:\n")
	for _, tool := range Tools {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Signature(), tool.Description)
	}

	b.WriteString(`
RESPONSE FORMAT:
Always use this format:
Thought: [your reasoning]
Action: [tool_name] OR Action: [tool_name]([argument]) for tools with args
[Wait for the observation, then continue]
Thought: [your reasoning based on the observation]
Final Answer: [your conclusive answer to the user's query]

Use at most one Action per reply and never write the Observation yourself.`)

	return b.String()
}
