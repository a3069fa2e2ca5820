package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries the tool catalog and response contract.
	RoleUser      MessageRole = "user"      // RoleUser carries the request and synthesized observations.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model replies.
)

// Valid reports whether r is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged entry of a conversation transcript.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// ModelInfo describes the language model behind a provider.
type ModelInfo struct {
	Metadata          map[string]interface{}
	Provider          string
	Name              string
	MaxTokens         int
	SupportsStreaming bool
}
