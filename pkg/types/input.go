package types

import "strings"

// Input is a single agent invocation request: a natural-language prompt
// and the URL of the page the executor is currently showing.
type Input struct {
	// Prompt is the user's request.
	Prompt string `json:"prompt"`

	// URL is the page context handed to the system prompt.
	URL string `json:"url"`
}

// NewInput creates a new invocation input.
func NewInput(prompt, url string) *Input {
	return &Input{
		Prompt: prompt,
		URL:    url,
	}
}

// IsEmpty reports whether the prompt has no content.
func (i *Input) IsEmpty() bool {
	return i == nil || strings.TrimSpace(i.Prompt) == ""
}
