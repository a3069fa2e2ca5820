// Package openai provides an OpenAI-compatible chat completion provider.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	reply, err := provider.Complete(ctx, messages)
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/pagepilot/pkg/llm"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultTemperature keeps replies close to the response grammar.
	DefaultTemperature = 0.3
)

// ErrMissingAPIKey is returned by NewProvider when no key is available.
var ErrMissingAPIKey = errors.New("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	modelInfo   *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it is read from OPENAI_API_KEY. If no base URL is set
// with WithBaseURL, OPENAI_BASE_URL is consulted.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	p := &Provider{
		model:       DefaultModel,
		apiKey:      apiKey,
		httpClient:  &http.Client{},
		baseURL:     DefaultBaseURL,
		temperature: DefaultTemperature,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	p.modelInfo = &types.ModelInfo{
		Provider:          "openai",
		Name:              p.model,
		SupportsStreaming: true,
		MaxTokens:         8192,
		Metadata:          make(map[string]interface{}),
	}
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// chatRequest is the body of a chat completion request.
type chatRequest struct {
	Model       string                                   `json:"model"`
	Messages    []openai.ChatCompletionMessageParamUnion `json:"messages"`
	Temperature float64                                  `json:"temperature"`
	Stream      bool                                     `json:"stream"`
}

// chatChunk is one SSE payload of a streamed completion.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamCompletion sends messages to the API and streams back response chunks.
//
// This implementation reads the SSE stream directly, which tolerates
// OpenAI-compatible servers that emit comments or keep-alive lines.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// sendStreamRequest creates and sends the HTTP request for streaming
func (p *Provider) sendStreamRequest(ctx context.Context, messages []*types.Message) (*http.Response, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(messages),
		Temperature: p.temperature,
		Stream:      true,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return resp, nil
}

// processStreamResponse processes the SSE stream and sends chunks to the channel
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	firstChunk := true

	for scanner.Scan() {
		line := scanner.Text()
		if !isValidSSELine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			p.send(ctx, &llm.StreamChunk{Finished: true}, chunks)
			return
		}

		if !p.processSSEChunk(ctx, data, &firstChunk, chunks) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}, chunks)
	}
}

// isValidSSELine checks if a line is a valid SSE data line
func isValidSSELine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

// processSSEChunk decodes a single SSE data payload. It returns false
// when the stream should stop.
func (p *Provider) processSSEChunk(ctx context.Context, data string, firstChunk *bool, chunks chan<- *llm.StreamChunk) bool {
	var chunk chatChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("malformed stream payload: %w", err)}, chunks)
		return false
	}

	if chunk.Error != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("API error: %s", chunk.Error.Message)}, chunks)
		return false
	}

	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	streamChunk := &llm.StreamChunk{Content: choice.Delta.Content}
	if *firstChunk && choice.Delta.Role != "" {
		streamChunk.Role = choice.Delta.Role
		*firstChunk = false
	}
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		streamChunk.Finished = true
	}

	if streamChunk.Content == "" && streamChunk.Role == "" && !streamChunk.Finished {
		return true
	}
	return p.send(ctx, streamChunk, chunks)
}

// send delivers a chunk unless the context is done.
func (p *Provider) send(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Complete sends messages to the API and returns the full reply.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	return llm.Accumulate(ctx, stream)
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// convertToOpenAIMessages converts transcript messages to OpenAI message params.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
