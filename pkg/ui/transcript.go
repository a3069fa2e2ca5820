// Package ui renders agent transcripts for the terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	thoughtStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	observationStyle = lipgloss.NewStyle().
				Foreground(brightWhite).
				PaddingLeft(2)

	finalAnswerStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(salmonPink).
				Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	plainStyle = lipgloss.NewStyle().
			Foreground(coralPink)
)

// ParagraphKind classifies a transcript paragraph by its leading marker.
type ParagraphKind int

const (
	KindText ParagraphKind = iota
	KindThought
	KindAction
	KindObservation
	KindFinalAnswer
)

var kindPrefixes = []struct {
	prefix string
	kind   ParagraphKind
}{
	{"Final Answer:", KindFinalAnswer},
	{"Observation:", KindObservation},
	{"Action:", KindAction},
	{"Thought:", KindThought},
}

// Classify returns the kind of a single paragraph. A paragraph containing
// a Final Answer line anywhere is a final answer.
func Classify(paragraph string) ParagraphKind {
	trimmed := strings.TrimSpace(paragraph)
	if strings.Contains(trimmed, "Final Answer:") {
		return KindFinalAnswer
	}
	for _, p := range kindPrefixes {
		if strings.HasPrefix(trimmed, p.prefix) {
			return p.kind
		}
	}
	return KindText
}

// Paragraphs splits a transcript into its non-empty paragraphs.
func Paragraphs(transcript string) []string {
	parts := strings.Split(transcript, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// RenderTranscript styles every paragraph of transcript by kind.
func RenderTranscript(transcript string) string {
	paragraphs := Paragraphs(transcript)
	rendered := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		rendered = append(rendered, styleFor(Classify(p)).Render(p))
	}
	return strings.Join(rendered, "\n\n")
}

// RenderError styles a fatal run error.
func RenderError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

func styleFor(kind ParagraphKind) lipgloss.Style {
	switch kind {
	case KindThought:
		return thoughtStyle
	case KindAction:
		return actionStyle
	case KindObservation:
		return observationStyle
	case KindFinalAnswer:
		return finalAnswerStyle
	default:
		return plainStyle
	}
}
