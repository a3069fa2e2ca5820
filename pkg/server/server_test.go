package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/entrhq/pagepilot/pkg/agent/bridge"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output string
	err    error
	prompt string
	url    string
}

func (f *fakeRunner) Run(_ context.Context, prompt, contextURL string) (string, error) {
	f.prompt = prompt
	f.url = contextURL
	return f.output, f.err
}

func newTestServer(t *testing.T, runner Runner) (*httptest.Server, *bridge.Hub, *bridge.Store) {
	t.Helper()
	hub := bridge.NewHub()
	store := bridge.NewStore(0)
	srv := httptest.NewServer(New(runner, hub, store, "").Handler())
	t.Cleanup(srv.Close)
	return srv, hub, store
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(0), body["executors"])
}

func TestRun(t *testing.T) {
	runner := &fakeRunner{output: "Final Answer: 42"}
	srv, _, _ := newTestServer(t, runner)

	resp, body := postJSON(t, srv.URL+"/api/agent/run", types.NewInput("  what is the price?  ", "https://example.com"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Final Answer: 42", body["output"])
	assert.Equal(t, "what is the price?", runner.prompt)
	assert.Equal(t, "https://example.com", runner.url)
}

func TestRun_EmptyPrompt(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	resp, body := postJSON(t, srv.URL+"/api/agent/run", types.NewInput("   ", ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"].(map[string]interface{})["code"])
}

func TestRun_InvalidJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	resp, err := http.Post(srv.URL+"/api/agent/run", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRun_ModelFailure(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{err: errors.New("llm completion failed: status 401")})

	resp, body := postJSON(t, srv.URL+"/api/agent/run", types.NewInput("hi", ""))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "model_failure", errBody["code"])
	assert.Contains(t, errBody["message"], "status 401")
}

func TestToolResponse_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	resp, body := postJSON(t, srv.URL+"/api/tools/response", map[string]string{"result": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"].(map[string]interface{})["code"])

	resp, body = postJSON(t, srv.URL+"/api/tools/response", types.NewToolResponse("unknown", "x"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["matched"])
}

func TestToolRoundTrip(t *testing.T) {
	srv, hub, store := newTestServer(t, &fakeRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/tools/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	require.Equal(t, 1, hub.Subscribers())

	dispatcher := bridge.NewDispatcher(store, hub.Emit, bridge.WithTimeout(2*time.Second))
	type outcome struct {
		result string
		err    error
	}
	results := make(chan outcome, 1)
	go func() {
		result, err := dispatcher.Dispatch(context.Background(), "search_dom", "price")
		results <- outcome{result, err}
	}()

	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	assert.Equal(t, ToolEventName, event)

	var toolReq types.ToolRequest
	require.NoError(t, json.Unmarshal([]byte(data), &toolReq))
	assert.Equal(t, "search_dom", toolReq.Tool)
	assert.Equal(t, "price", toolReq.Arg)
	require.NotEmpty(t, toolReq.RequestID)

	postResp, body := postJSON(t, srv.URL+"/api/tools/response", types.NewToolResponse(toolReq.RequestID, "Found 1 matches"))
	assert.Equal(t, http.StatusOK, postResp.StatusCode)
	assert.Equal(t, true, body["matched"])

	select {
	case got := <-results:
		require.NoError(t, got.err)
		assert.Equal(t, "Found 1 matches", got.result)
	case <-time.After(3 * time.Second):
		t.Fatal("dispatch did not return")
	}

	// A duplicate submission is accepted and ignored.
	_, body = postJSON(t, srv.URL+"/api/tools/response", types.NewToolResponse(toolReq.RequestID, "again"))
	assert.Equal(t, false, body["matched"])
}
