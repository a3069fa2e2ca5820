package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pagepilot/pkg/types"
)

var (
	// ErrEmptyResponse is returned when a completion carries no content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrIncompleteStream is returned when a stream ends before its final chunk.
	ErrIncompleteStream = errors.New("stream ended before completion")
)

// StreamChunk is a piece of a streamed completion.
type StreamChunk struct {
	// Error is set when the stream failed.
	Error error

	// Role is set on the first chunk of a reply.
	Role string

	// Content is a delta of the reply text.
	Content string

	// Finished marks the final chunk.
	Finished bool
}

// IsError reports whether the chunk carries an error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// Accumulate drains a stream into a single assistant message. The stream
// must deliver a Finished chunk before it is closed.
func Accumulate(ctx context.Context, stream <-chan *StreamChunk) (*types.Message, error) {
	var content strings.Builder
	role := ""
	finished := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-stream:
			if !ok {
				if !finished {
					return nil, fmt.Errorf("%w after %d bytes", ErrIncompleteStream, content.Len())
				}
				if content.Len() == 0 {
					return nil, ErrEmptyResponse
				}
				if role == "" {
					role = string(types.RoleAssistant)
				}
				return &types.Message{Role: types.MessageRole(role), Content: content.String()}, nil
			}
			if chunk.IsError() {
				return nil, chunk.Error
			}
			if chunk.Role != "" {
				role = chunk.Role
			}
			content.WriteString(chunk.Content)
			if chunk.Finished {
				finished = true
			}
		}
	}
}
