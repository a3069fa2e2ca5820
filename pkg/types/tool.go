package types

// ToolRequest is emitted to the external executor once per dispatch.
// Arg is omitted from the wire form when the tool takes no argument.
type ToolRequest struct {
	Tool      string `json:"tool"`
	Arg       string `json:"arg,omitempty"`
	RequestID string `json:"request_id"`
}

// HasArg reports whether the request carries an argument.
func (r *ToolRequest) HasArg() bool {
	return r.Arg != ""
}

// ToolResponse is submitted by the external executor, keyed by the
// correlation id of the request it answers.
type ToolResponse struct {
	RequestID string `json:"request_id"`
	Result    string `json:"result"`
}

// NewToolResponse creates a tool response for the given request id.
func NewToolResponse(requestID, result string) *ToolResponse {
	return &ToolResponse{RequestID: requestID, Result: result}
}
