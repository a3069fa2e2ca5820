package browser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxPrices caps the prices listed by extract_prices.
const MaxPrices = 10

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\d+(?:\.\d{2})?`),                    // $19.99, $19
	regexp.MustCompile(`(?i)\d+(?:\.\d{2})?\s*(?:USD|dollars?)`), // 19.99 USD, 19 dollars
	regexp.MustCompile(`\d+(?:\.\d{2})?\s*€`),                   // 19.99€
	regexp.MustCompile(`£\d+(?:\.\d{2})?`),                      // £19.99
	regexp.MustCompile(`(?i)\d+(?:\.\d{2})?\s*(?:EUR|GBP)`),     // 19.99 EUR
}

// parseHTML parses a page snapshot.
func parseHTML(content string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// textLines returns the non-empty, trimmed lines of rendered body text.
func textLines(doc *html.Node) []string {
	root := findElement(doc, atom.Body)
	if root == nil {
		root = doc
	}

	var b strings.Builder
	writeText(root, &b)

	raw := strings.Split(b.String(), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// writeText approximates innerText: block elements and <br> break lines,
// table cells are separated by spaces.
func writeText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		switch {
		case tag == "br":
			b.WriteString("\n")
			return
		case tag == "td" || tag == "th":
			b.WriteString(" ")
		case isBlockElement(tag):
			b.WriteString("\n")
			defer b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b)
	}
}

// firstTable returns the rows of the first table, cells joined by " | ".
// Rows without text are dropped. ok is false when the page has no table.
func firstTable(doc *html.Node) (rows []string, ok bool) {
	table := findElement(doc, atom.Table)
	if table == nil {
		return nil, false
	}

	for _, tr := range findAll(table, atom.Tr) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, strings.Join(strings.Fields(nodeText(c)), " "))
			}
		}
		if row := strings.Join(cells, " | "); row != "" {
			rows = append(rows, row)
		}
	}
	return rows, true
}

// findPrices returns unique price strings in discovery order.
func findPrices(text string) []string {
	seen := make(map[string]bool)
	var prices []string
	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			match = strings.TrimSpace(match)
			if !seen[match] {
				seen[match] = true
				prices = append(prices, match)
			}
		}
	}
	return prices
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// isSkippedElement returns true for elements that carry no visible text
func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "head", "svg", "iframe", "object":
		return true
	}
	return false
}

// isBlockElement returns true for elements that start a new line of text
func isBlockElement(tag string) bool {
	switch tag {
	case "div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr",
		"form", "fieldset", "blockquote", "pre", "dl", "dt", "dd", "figure", "figcaption":
		return true
	}
	return false
}
