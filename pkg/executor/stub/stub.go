// Package stub provides a browser executor that returns canned results.
// It stands in for a real page in demos and tests.
package stub

import (
	"context"
	"fmt"

	"github.com/entrhq/pagepilot/pkg/types"
)

// Canned results.
const (
	PricesResult = "Prices found: $19.99, $29.99, $49.99"
	ClickResult  = "Clicked button successfully"
	TableResult  = "Table data extracted: Column1 | Column2 | Column3\nValue1 | Value2 | Value3"
)

// Executor answers every tool with a fixed result.
type Executor struct{}

// New creates a stub executor.
func New() *Executor {
	return &Executor{}
}

// Execute returns the canned result for req.
func (e *Executor) Execute(_ context.Context, req *types.ToolRequest) string {
	switch req.Tool {
	case "click_button":
		return ClickResult
	case "search_dom":
		keyword := req.Arg
		if !req.HasArg() {
			keyword = "content"
		}
		return fmt.Sprintf("Found matches for '%s' in the DOM", keyword)
	case "scrape_table":
		return TableResult
	case "extract_prices":
		return PricesResult
	case "navigate_to":
		if !req.HasArg() {
			return "Error: No URL provided"
		}
		return fmt.Sprintf("Successfully navigated to: %s", req.Arg)
	default:
		return fmt.Sprintf("Unknown tool: %s", req.Tool)
	}
}
