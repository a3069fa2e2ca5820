package agent

import (
	"strings"

	"github.com/entrhq/pagepilot/pkg/types"
)

// ObservationPrefix starts every message that reports a tool result.
const ObservationPrefix = "Observation: "

// Transcript is the append-only conversation of one Run. The first
// message is always the system prompt and the second the user request.
type Transcript struct {
	messages []*types.Message
}

// NewTranscript seeds a transcript with the system prompt and request.
func NewTranscript(systemPrompt, request string) *Transcript {
	return &Transcript{
		messages: []*types.Message{
			types.NewSystemMessage(systemPrompt),
			types.NewUserMessage(request),
		},
	}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(msg *types.Message) {
	t.messages = append(t.messages, msg)
}

// AddObservation appends a tool observation as a user message.
func (t *Transcript) AddObservation(text string) {
	t.Append(types.NewUserMessage(ObservationPrefix + text))
}

// Messages returns copies of all messages in order.
func (t *Transcript) Messages() []*types.Message {
	out := make([]*types.Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Output joins every reply and observation with blank lines. The seed
// messages are left out.
func (t *Transcript) Output() string {
	if len(t.messages) <= 2 {
		return ""
	}
	parts := make([]string, 0, len(t.messages)-2)
	for _, m := range t.messages[2:] {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}
