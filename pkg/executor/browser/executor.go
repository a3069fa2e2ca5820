// Package browser executes agent tools against a live browser page.
//
// The Executor reads the page through the Page interface, so it can drive
// a Playwright Session or any other page implementation:
//
//	session, err := browser.Launch(browser.Options{Headless: true, StartURL: "https://example.com"})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	exec := browser.NewExecutor(session, browser.WithAllowlist(allow))
//	result := exec.Execute(ctx, req)
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
	"golang.org/x/net/html"
)

// MaxSearchMatches caps the lines returned by search_dom.
const MaxSearchMatches = 5

var browserLog *logging.Logger

func init() {
	var err error
	browserLog, err = logging.NewLogger("browser")
	if err != nil {
		browserLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// toolFunc performs one tool. Returned errors become "Error executing" results.
type toolFunc func(e *Executor, arg string) (string, error)

var toolFuncs = map[string]toolFunc{
	"click_button":   (*Executor).clickButton,
	"search_dom":     (*Executor).searchDOM,
	"scrape_table":   (*Executor).scrapeTable,
	"extract_prices": (*Executor).extractPrices,
	"navigate_to":    (*Executor).navigateTo,
}

// Executor runs tool requests against a page.
type Executor struct {
	page  Page
	allow *Allowlist
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithAllowlist restricts navigate_to to the given hosts.
func WithAllowlist(allow *Allowlist) ExecutorOption {
	return func(e *Executor) {
		e.allow = allow
	}
}

// NewExecutor creates an executor for page.
func NewExecutor(page Page, opts ...ExecutorOption) *Executor {
	e := &Executor{page: page}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs req and returns its result text. Unknown tools and
// tool failures are reported in the text.
func (e *Executor) Execute(_ context.Context, req *types.ToolRequest) string {
	fn, ok := toolFuncs[req.Tool]
	if !ok {
		return fmt.Sprintf("Error: Unknown tool '%s'", req.Tool)
	}

	result, err := fn(e, req.Arg)
	if err != nil {
		browserLog.Warnf("Tool %s failed on %s: %v", req.Tool, e.page.URL(), err)
		return fmt.Sprintf("Error executing %s: %v", req.Tool, err)
	}
	return result
}

func (e *Executor) clickButton(selector string) (string, error) {
	if selector == "" {
		selector = DefaultClickSelector
	}

	el, err := e.page.Click(selector)
	if errors.Is(err, ErrNoElement) {
		return fmt.Sprintf("No clickable elements found matching selector: %s", selector), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully clicked element: %s", el), nil
}

func (e *Executor) searchDOM(keyword string) (string, error) {
	if keyword == "" {
		keyword = "content"
	}

	lines, err := e.pageLines()
	if err != nil {
		return "", err
	}

	needle := strings.ToLower(keyword)
	var matches []string
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, line)
		}
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No matches found for %q. Page contains %d lines of text.", keyword, len(lines)), nil
	}

	shown := matches
	if len(shown) > MaxSearchMatches {
		shown = shown[:MaxSearchMatches]
	}
	return fmt.Sprintf("Found %d matches for %q:\n\n%s", len(matches), keyword, strings.Join(shown, "\n")), nil
}

func (e *Executor) scrapeTable(string) (string, error) {
	doc, err := e.document()
	if err != nil {
		return "", err
	}

	rows, ok := firstTable(doc)
	if !ok {
		return "No tables found on this page", nil
	}
	if len(rows) == 0 {
		return "Table found but no rows detected", nil
	}
	return fmt.Sprintf("Table data extracted (%d rows):\n\n%s", len(rows), strings.Join(rows, "\n")), nil
}

func (e *Executor) extractPrices(string) (string, error) {
	lines, err := e.pageLines()
	if err != nil {
		return "", err
	}

	prices := findPrices(strings.Join(lines, "\n"))
	if len(prices) == 0 {
		return "No prices found on this page", nil
	}

	shown := prices
	if len(shown) > MaxPrices {
		shown = shown[:MaxPrices]
	}
	return fmt.Sprintf("Found %d prices:\n%s", len(prices), strings.Join(shown, ", ")), nil
}

func (e *Executor) navigateTo(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Error: No URL provided", nil
	}
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if !e.allow.Allows(u.Hostname()) {
		return fmt.Sprintf("Error: Navigation to %s is not allowed", u.Hostname()), nil
	}

	if err := e.page.Navigate(u.String()); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully navigated to: %s", u.String()), nil
}

func (e *Executor) pageLines() ([]string, error) {
	doc, err := e.document()
	if err != nil {
		return nil, err
	}
	return textLines(doc), nil
}

func (e *Executor) document() (*html.Node, error) {
	content, err := e.page.Content()
	if err != nil {
		return nil, err
	}
	return parseHTML(content)
}
