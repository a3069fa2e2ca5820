package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/pagepilot/pkg/llm"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, lines []string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func TestNewProvider_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	p, err := NewProvider("test-key")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())
	assert.Equal(t, "openai", p.GetModelInfo().Provider)
	assert.NotContains(t, p.GetModelInfo().Metadata, "base_url")
}

func TestNewProvider_EnvBaseURL(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/v1/")
	p, err := NewProvider("test-key", WithModel("local-model"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1234/v1", p.GetBaseURL())
	assert.Equal(t, "local-model", p.GetModelInfo().Name)
	assert.Equal(t, "http://localhost:1234/v1", p.GetModelInfo().Metadata["base_url"])
}

func TestComplete_AccumulatesStream(t *testing.T) {
	var body map[string]interface{}
	srv := sseServer(t, []string{
		": keep-alive",
		`data: {"choices":[{"delta":{"role":"assistant","content":"Thought: done\n"}}]}`,
		`data: {"choices":[{"delta":{"content":"Final Answer: 42"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"data: [DONE]",
	}, &body)
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL), WithTemperature(0.1))
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("system"),
		types.NewUserMessage("question"),
		types.NewAssistantMessage("earlier"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, reply.Role)
	assert.Equal(t, "Thought: done\nFinal Answer: 42", reply.Content)

	assert.Equal(t, DefaultModel, body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)

	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 3)
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]interface{})["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant"}, roles)
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid key")
}

func TestComplete_StreamError(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"partial"}}]}`,
		`data: {"error":{"message":"overloaded"}}`,
	}, nil)
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestComplete_EmptyStream(t *testing.T) {
	srv := sseServer(t, []string{"data: [DONE]"}, nil)
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
}

func TestComplete_TruncatedStream(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","content":"Thought: I will"}}]}`,
	}, nil)
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, llm.ErrIncompleteStream)
}

func TestIsValidSSELine(t *testing.T) {
	assert.True(t, isValidSSELine("data: {}"))
	assert.False(t, isValidSSELine(""))
	assert.False(t, isValidSSELine(": ping"))
	assert.False(t, isValidSSELine("event: message"))
}
