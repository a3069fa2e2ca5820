// Package action extracts tool invocations from free-form model replies.
//
// A reply selects a tool with a single line of the form
//
//	Action: tool_name
//	Action: tool_name(argument)
//
// Only the first Action line is considered.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// Marker is the literal prefix of an action line.
const Marker = "Action:"

var (
	// ErrNoAction is returned when the text has no Action line.
	ErrNoAction = errors.New("no action line")

	// ErrMalformedAction is returned when an Action line is present but
	// cannot be parsed into a tool name and argument.
	ErrMalformedAction = errors.New("malformed action")
)

// Action is a parsed tool invocation. Arg is empty when the tool is
// invoked without an argument.
type Action struct {
	Tool string
	Arg  string
}

// HasArg reports whether the action carries an argument.
func (a Action) HasArg() bool {
	return a.Arg != ""
}

// String renders the action the way the model is expected to write it.
func (a Action) String() string {
	if a.Arg == "" {
		return a.Tool
	}
	return fmt.Sprintf("%s(%s)", a.Tool, a.Arg)
}

// Parse scans text for the first line whose trimmed content starts with
// Marker and parses it. It returns ErrNoAction when no such line exists
// and an error wrapping ErrMalformedAction when the line is unparsable.
func Parse(text string) (Action, error) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, Marker) {
			continue
		}
		return parseRemainder(strings.TrimSpace(strings.TrimPrefix(trimmed, Marker)))
	}
	return Action{}, ErrNoAction
}

func parseRemainder(rest string) (Action, error) {
	open := strings.Index(rest, "(")
	if open < 0 {
		if rest == "" {
			return Action{}, fmt.Errorf("%w: missing tool name", ErrMalformedAction)
		}
		return Action{Tool: rest}, nil
	}

	closing := strings.Index(rest[open+1:], ")")
	if closing < 0 {
		return Action{}, fmt.Errorf("%w: unclosed parenthesis in %q", ErrMalformedAction, rest)
	}

	name := strings.TrimSpace(rest[:open])
	if name == "" {
		return Action{}, fmt.Errorf("%w: missing tool name in %q", ErrMalformedAction, rest)
	}

	arg := unquote(strings.TrimSpace(rest[open+1 : open+1+closing]))
	return Action{Tool: name, Arg: arg}, nil
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
