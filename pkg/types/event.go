package types

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeAPICallStart    AgentEventType = "api_call_start"    // EventTypeAPICallStart indicates the agent is querying the language model.
	EventTypeAPICallEnd      AgentEventType = "api_call_end"      // EventTypeAPICallEnd indicates a model reply has been received.
	EventTypeToolCall        AgentEventType = "tool_call"         // EventTypeToolCall indicates the agent is dispatching a tool.
	EventTypeToolResult      AgentEventType = "tool_result"       // EventTypeToolResult indicates a tool returned a result.
	EventTypeToolResultError AgentEventType = "tool_result_error" // EventTypeToolResultError indicates a tool timed out or failed.
	EventTypeInvalidAction   AgentEventType = "invalid_action"    // EventTypeInvalidAction indicates an Action line that could not be parsed.
	EventTypeNoToolCall      AgentEventType = "no_tool_call"      // EventTypeNoToolCall indicates a reply with neither an action nor a final answer.
	EventTypeFinalAnswer     AgentEventType = "final_answer"      // EventTypeFinalAnswer indicates the model produced a final answer.
	EventTypeError           AgentEventType = "error"             // EventTypeError indicates an error ended the invocation.
)

// AgentEvent represents an event emitted by the agent during execution.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains error information for error events.
	Error error

	// Content holds text content (model reply, observation, final answer).
	Content string

	// ToolName is the name of the tool being called (for tool events).
	ToolName string

	// ToolArg is the argument passed to the tool, empty when absent.
	ToolArg string

	// Type indicates the kind of event.
	Type AgentEventType

	// Iteration is the 1-based reasoning iteration the event belongs to.
	Iteration int
}

// NewAPICallStartEvent creates an API call start event.
func NewAPICallStartEvent(iteration, messageCount int) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeAPICallStart,
		Iteration: iteration,
		Metadata: map[string]interface{}{
			"message_count": messageCount,
		},
	}
}

// NewAPICallEndEvent creates an API call end event carrying the reply.
func NewAPICallEndEvent(iteration int, reply string) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeAPICallEnd,
		Iteration: iteration,
		Content:   reply,
		Metadata:  make(map[string]interface{}),
	}
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(iteration int, toolName, arg string) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeToolCall,
		Iteration: iteration,
		ToolName:  toolName,
		ToolArg:   arg,
		Metadata:  make(map[string]interface{}),
	}
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(iteration int, toolName, result string) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeToolResult,
		Iteration: iteration,
		ToolName:  toolName,
		Content:   result,
		Metadata:  make(map[string]interface{}),
	}
}

// NewToolResultErrorEvent creates a tool result error event.
func NewToolResultErrorEvent(iteration int, toolName string, err error) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeToolResultError,
		Iteration: iteration,
		ToolName:  toolName,
		Error:     err,
		Metadata:  make(map[string]interface{}),
	}
}

// NewInvalidActionEvent creates an invalid action event.
func NewInvalidActionEvent(iteration int, err error) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeInvalidAction,
		Iteration: iteration,
		Error:     err,
		Metadata:  make(map[string]interface{}),
	}
}

// NewNoToolCallEvent creates a no tool call event.
func NewNoToolCallEvent(iteration int) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeNoToolCall,
		Iteration: iteration,
		Metadata:  make(map[string]interface{}),
	}
}

// NewFinalAnswerEvent creates a final answer event.
func NewFinalAnswerEvent(iteration int, content string) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeFinalAnswer,
		Iteration: iteration,
		Content:   content,
		Metadata:  make(map[string]interface{}),
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// IsError returns true if this is an error event.
func (e *AgentEvent) IsError() bool {
	return e.Type == EventTypeError || e.Type == EventTypeToolResultError
}

// IsToolEvent returns true if this event relates to a tool dispatch.
func (e *AgentEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall || e.Type == EventTypeToolResult || e.Type == EventTypeToolResultError
}

// WithMetadata adds a metadata entry and returns the event for chaining.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}
