package browser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Defaults for a browser session.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second
)

// DefaultClickSelector is used by click_button when no selector is given.
const DefaultClickSelector = `button, input[type="button"], input[type="submit"], a`

// ErrNoElement is returned by Click when nothing matches the selector.
var ErrNoElement = errors.New("no matching element")

// Element describes a clicked element.
type Element struct {
	Tag   string
	ID    string
	Class string
}

// String renders the element as tag#id.class1.class2.
func (e Element) String() string {
	var b strings.Builder
	b.WriteString(e.Tag)
	if e.ID != "" {
		b.WriteString("#" + e.ID)
	}
	if classes := strings.Fields(e.Class); len(classes) > 0 {
		b.WriteString("." + strings.Join(classes, "."))
	}
	return b.String()
}

// Page is the part of a browser page the tools need.
type Page interface {
	// Content returns the page's serialized HTML.
	Content() (string, error)

	// URL returns the current address.
	URL() string

	// Navigate loads url and waits for the load event.
	Navigate(url string) error

	// Click clicks the first element matching selector.
	Click(selector string) (Element, error)
}

// Options configures a browser session.
type Options struct {
	Headless bool
	StartURL string
	Timeout  time.Duration
}

// Session is a Chromium page driven through Playwright. It implements Page.
type Session struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	page       playwright.Page
	closeOnce  sync.Once
}

// Launch installs the Playwright driver if needed, starts Chromium and
// opens a page at opts.StartURL.
func Launch(opts Options) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	// Keep driver output away from the terminal
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	s := &Session{
		playwright: pw,
		browser:    browser,
		context:    bctx,
		page:       page,
	}

	if opts.StartURL != "" {
		if err := s.Navigate(opts.StartURL); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Content returns the page HTML.
func (s *Session) Content() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

// URL returns the current page address.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.URL()
}

// Navigate loads url.
func (s *Session) Navigate(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	waitUntil := playwright.WaitUntilState("load")
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string) (Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elements, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return Element{}, fmt.Errorf("selector query failed: %w", err)
	}
	if len(elements) == 0 {
		return Element{}, ErrNoElement
	}

	el := elements[0]
	info := Element{}
	if tag, evalErr := el.Evaluate("el => el.tagName.toLowerCase()"); evalErr == nil {
		info.Tag, _ = tag.(string)
	}
	info.ID, _ = el.GetAttribute("id")
	info.Class, _ = el.GetAttribute("class")

	if err := el.Click(); err != nil {
		return Element{}, fmt.Errorf("click failed: %w", err)
	}
	return info, nil
}

// Close releases the page, browser and driver. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// Ignore errors, continue cleanup
		_ = s.page.Close()
		_ = s.context.Close()
		_ = s.browser.Close()
		_ = s.playwright.Stop()
	})
}
