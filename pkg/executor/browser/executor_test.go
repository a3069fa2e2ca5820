package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopPage = `<!DOCTYPE html>
<html>
<head><title>Shop</title><script>var price = "$999.99";</script></head>
<body>
  <h1>Widget Shop</h1>
  <p>Basic widget: $19.99</p>
  <p>Pro widget: $29.99 or 27.50 EUR</p>
  <div>Enterprise widget <span>$49.99</span></div>
  <p>Shipping content is calculated at checkout.</p>
  <table>
    <thead><tr><th>Plan</th><th>Price</th></tr></thead>
    <tbody>
      <tr><td>Basic</td><td>$19.99</td></tr>
      <tr><td>Pro</td><td>$29.99</td></tr>
      <tr></tr>
    </tbody>
  </table>
  <button id="buy" class="btn primary">Buy</button>
</body>
</html>`

type fakePage struct {
	content    string
	contentErr error
	url        string
	navigated  []string
	clicked    []string
	element    Element
	clickErr   error
}

func (p *fakePage) Content() (string, error) { return p.content, p.contentErr }
func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Navigate(url string) error {
	p.navigated = append(p.navigated, url)
	p.url = url
	return nil
}

func (p *fakePage) Click(selector string) (Element, error) {
	p.clicked = append(p.clicked, selector)
	return p.element, p.clickErr
}

func run(e *Executor, tool, arg string) string {
	return e.Execute(context.Background(), &types.ToolRequest{Tool: tool, Arg: arg, RequestID: "test"})
}

func TestExtractPrices(t *testing.T) {
	e := NewExecutor(&fakePage{content: shopPage})

	result := run(e, "extract_prices", "")
	assert.Equal(t, "Found 4 prices:\n$19.99, $29.99, $49.99, 27.50 EUR", result)
	assert.NotContains(t, result, "$999.99", "script text is not visible")
}

func TestExtractPrices_None(t *testing.T) {
	e := NewExecutor(&fakePage{content: "<html><body><p>Free</p></body></html>"})
	assert.Equal(t, "No prices found on this page", run(e, "extract_prices", ""))
}

func TestExtractPrices_Cap(t *testing.T) {
	body := "<html><body>"
	for i := 10; i < 25; i++ {
		body += "<p>$" + string(rune('0'+i/10)) + string(rune('0'+i%10)) + "</p>"
	}
	body += "</body></html>"
	e := NewExecutor(&fakePage{content: body})

	result := run(e, "extract_prices", "")
	assert.Contains(t, result, "Found 15 prices:")
	assert.Contains(t, result, "$19")
	assert.NotContains(t, result, "$20")
}

func TestSearchDOM(t *testing.T) {
	e := NewExecutor(&fakePage{content: shopPage})

	assert.Equal(t, "Found 4 matches for \"widget\":\n\nWidget Shop\nBasic widget: $19.99\nPro widget: $29.99 or 27.50 EUR\nEnterprise widget $49.99",
		run(e, "search_dom", "widget"))

	result := run(e, "search_dom", "")
	assert.Contains(t, result, `Found 1 matches for "content"`)
	assert.Contains(t, result, "Shipping content is calculated at checkout.")

	result = run(e, "search_dom", "refund")
	assert.Contains(t, result, `No matches found for "refund"`)
}

func TestSearchDOM_LimitsMatches(t *testing.T) {
	body := "<html><body>"
	for i := 0; i < 8; i++ {
		body += "<p>item</p>"
	}
	body += "</body></html>"
	e := NewExecutor(&fakePage{content: body})

	result := run(e, "search_dom", "item")
	assert.Contains(t, result, `Found 8 matches for "item"`)
	assert.Equal(t, MaxSearchMatches+2, len(strings.Split(result, "\n")))
}

func TestScrapeTable(t *testing.T) {
	e := NewExecutor(&fakePage{content: shopPage})
	assert.Equal(t, "Table data extracted (3 rows):\n\nPlan | Price\nBasic | $19.99\nPro | $29.99", run(e, "scrape_table", ""))

	e = NewExecutor(&fakePage{content: "<html><body><p>none</p></body></html>"})
	assert.Equal(t, "No tables found on this page", run(e, "scrape_table", ""))

	e = NewExecutor(&fakePage{content: "<html><body><table></table></body></html>"})
	assert.Equal(t, "Table found but no rows detected", run(e, "scrape_table", ""))
}

func TestClickButton(t *testing.T) {
	page := &fakePage{element: Element{Tag: "button", ID: "buy", Class: "btn primary"}}
	e := NewExecutor(page)

	assert.Equal(t, "Successfully clicked element: button#buy.btn.primary", run(e, "click_button", ""))
	assert.Equal(t, "Successfully clicked element: button#buy.btn.primary", run(e, "click_button", "#buy"))
	assert.Equal(t, []string{DefaultClickSelector, "#buy"}, page.clicked)
}

func TestClickButton_NoElement(t *testing.T) {
	e := NewExecutor(&fakePage{clickErr: ErrNoElement})
	assert.Equal(t, "No clickable elements found matching selector: .missing", run(e, "click_button", ".missing"))
}

func TestNavigateTo(t *testing.T) {
	page := &fakePage{}
	allow, err := NewAllowlist([]string{"example.com", "*.example.com"})
	require.NoError(t, err)
	e := NewExecutor(page, WithAllowlist(allow))

	assert.Equal(t, "Successfully navigated to: https://example.com/shop", run(e, "navigate_to", "example.com/shop"))
	assert.Equal(t, "Successfully navigated to: http://docs.example.com", run(e, "navigate_to", "http://docs.example.com"))
	assert.Equal(t, "Error: Navigation to evil.test is not allowed", run(e, "navigate_to", "evil.test"))
	assert.Equal(t, "Error: No URL provided", run(e, "navigate_to", ""))

	assert.Equal(t, []string{"https://example.com/shop", "http://docs.example.com"}, page.navigated)
}

func TestExecute_Errors(t *testing.T) {
	e := NewExecutor(&fakePage{contentErr: errors.New("page crashed")})

	assert.Equal(t, "Error: Unknown tool 'teleport'", run(e, "teleport", ""))
	assert.Equal(t, "Error executing extract_prices: page crashed", run(e, "extract_prices", ""))
}

func TestElementString(t *testing.T) {
	assert.Equal(t, "a", Element{Tag: "a"}.String())
	assert.Equal(t, "a#home", Element{Tag: "a", ID: "home"}.String())
	assert.Equal(t, "input.x.y", Element{Tag: "input", Class: " x  y "}.String())
}
