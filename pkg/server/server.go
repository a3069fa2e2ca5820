// Package server exposes the agent and the tool bridge over HTTP so that a
// browser shell can act as the tool executor.
//
// The shell subscribes to GET /api/tools/events, performs each
// execute-tool event in its page, and posts the result to
// POST /api/tools/response. Agent runs are started with POST /api/agent/run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/pagepilot/pkg/agent/bridge"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ToolEventName is the SSE event name of a tool request.
const ToolEventName = "execute-tool"

const shutdownTimeout = 5 * time.Second

var serverLog *logging.Logger

func init() {
	var err error
	serverLog, err = logging.NewLogger("server")
	if err != nil {
		serverLog.Warnf("Failed to initialize server logger, using stderr fallback: %v", err)
	}
}

// Runner runs an agent invocation.
type Runner interface {
	Run(ctx context.Context, prompt, contextURL string) (string, error)
}

// Server is the HTTP bridge.
type Server struct {
	runner Runner
	hub    *bridge.Hub
	store  *bridge.Store
	addr   string
}

// New creates a server that runs prompts with runner and relays tool
// traffic through hub and store.
func New(runner Runner, hub *bridge.Hub, store *bridge.Store, addr string) *Server {
	return &Server{
		runner: runner,
		hub:    hub,
		store:  store,
		addr:   addr,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(api chi.Router) {
		api.Post("/agent/run", s.handleRun)
		api.Route("/tools", func(r chi.Router) {
			r.Get("/events", s.handleToolEvents)
			r.Post("/response", s.handleToolResponse)
		})
	})

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(serverLog.Slog().Handler(), slog.LevelError),
		// Request contexts end with ctx so event streams close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		serverLog.Infof("Listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"executors": s.hub.Subscribers(),
		"pending":   s.store.Len(),
	})
}

type runResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var in types.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	if in.IsEmpty() {
		writeErr(w, http.StatusBadRequest, "invalid_request", "prompt is required", nil)
		return
	}

	output, err := s.runner.Run(r.Context(), strings.TrimSpace(in.Prompt), in.URL)
	if err != nil {
		if r.Context().Err() != nil {
			serverLog.Infof("Run abandoned by client: %v", err)
			return
		}
		writeErr(w, http.StatusBadGateway, "model_failure", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Output: output})
}

func (s *Server) handleToolEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "stream_not_supported", "streaming not supported", nil)
		return
	}

	requests, cancel := s.hub.Subscribe(bridge.DefaultSubscriberBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	serverLog.Infof("Tool executor connected from %s", r.RemoteAddr)
	defer serverLog.Infof("Tool executor from %s disconnected", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			payload, err := json.Marshal(req)
			if err != nil {
				serverLog.Errorf("Failed to encode request %s: %v", req.RequestID, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ToolEventName, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type toolResponseResult struct {
	Matched bool `json:"matched"`
}

func (s *Server) handleToolResponse(w http.ResponseWriter, r *http.Request) {
	var resp types.ToolResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	if resp.RequestID == "" {
		writeErr(w, http.StatusBadRequest, "invalid_request", "request_id is required", nil)
		return
	}

	writeJSON(w, http.StatusOK, toolResponseResult{Matched: s.store.Submit(&resp)})
}
