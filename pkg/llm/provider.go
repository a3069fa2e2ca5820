// Package llm provides abstractions for language model integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewSystemMessage("You are a browser assistant."),
//	    types.NewUserMessage("What is on this page?"),
//	})
package llm

import (
	"context"

	"github.com/entrhq/pagepilot/pkg/types"
)

// Provider defines the interface for language model integrations.
//
// Providers only talk to the model service. Transcript management,
// action parsing and tool dispatch belong to the agent.
type Provider interface {
	// StreamCompletion sends messages to the model and streams back
	// response chunks. The channel is closed when the stream ends.
	//
	// Returns an error only if streaming cannot be initiated (invalid
	// configuration, transport or auth failure). Stream-time errors are
	// delivered as chunks with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the model and returns the full reply.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}
