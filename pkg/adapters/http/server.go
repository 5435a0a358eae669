// Package http exposes the assistant over HTTP: chat and resume endpoints,
// thread administration, server-sent thread diffs and the OpenAPI document.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/runner"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Assistant is the part of *concierge.Assistant the server needs.
type Assistant interface {
	Chat(ctx context.Context, threadID, userContextID, text string) (*domain.Turn, error)
	Resume(ctx context.Context, threadID string, d concierge.Decision) (*domain.Turn, error)
	Snapshot(ctx context.Context, threadID string) (*domain.Conversation, error)
	Threads(ctx context.Context) ([]string, error)
	Forget(ctx context.Context, threadID string) error
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	ThreadID      string `json:"thread_id"`
	UserContextID string `json:"user_context_id"`
	Message       string `json:"message"`
}

// ResumeRequest is the body of POST /resume.
type ResumeRequest struct {
	ThreadID       string `json:"thread_id"`
	Approve        bool   `json:"approve"`
	Reason         string `json:"reason"`
	ConfirmationID string `json:"confirmation_id"`
}

// Server serves one Assistant.
type Server struct {
	bot     Assistant
	streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
	observe func(error)

	chatSchema   *openapi3.Schema
	resumeSchema *openapi3.Schema
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h on GET /metrics and reports every failed turn to observe.
func WithMetrics(h http.Handler, observe func(error)) Option {
	return func(s *Server) {
		s.metrics = h
		s.observe = observe
	}
}

// NewHandler builds the router.
func NewHandler(bot Assistant, opts ...Option) (http.Handler, error) {
	doc, err := Spec()
	if err != nil {
		return nil, err
	}
	s := &Server{bot: bot}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.streams = NewStreamManager(s.logger)

	if s.chatSchema, err = bodySchema(doc, http.MethodPost, "/chat"); err != nil {
		return nil, err
	}
	if s.resumeSchema, err = bodySchema(doc, http.MethodPost, "/resume"); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/chat", s.Chat)
	r.Post("/resume", s.Resume)
	r.Route("/threads", func(r chi.Router) {
		r.Get("/", s.ListThreads)
		r.Get("/{threadID}", s.GetThread)
		r.Delete("/{threadID}", s.DeleteThread)
		r.Get("/{threadID}/events", s.SubscribeEvents)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Concierge API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// readBody validates the request body against schema and decodes it.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, schema *openapi3.Schema, dst any) error {
	// Room for JSON escaping around a maximal message.
	limit := int64(runner.MaxInputSize())*6 + 4096
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := decodeValidated(schema, raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := s.readBody(w, r, s.chatSchema, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	msg, err := runner.SanitizeInput(body.Message)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	before := s.snapshotForDiff(r.Context(), body.ThreadID)
	turn, err := s.bot.Chat(r.Context(), body.ThreadID, body.UserContextID, msg)
	s.respond(w, before, turn, err)
}

// Resume handles POST /resume.
func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	var body ResumeRequest
	if err := s.readBody(w, r, s.resumeSchema, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if body.Reason != "" {
		reason, err := runner.SanitizeInput(body.Reason)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		body.Reason = reason
	}

	before := s.snapshotForDiff(r.Context(), body.ThreadID)
	turn, err := s.bot.Resume(r.Context(), body.ThreadID, concierge.Decision{
		Approve:        body.Approve,
		Reason:         body.Reason,
		ConfirmationID: body.ConfirmationID,
	})
	s.respond(w, before, turn, err)
}

func (s *Server) respond(w http.ResponseWriter, before *domain.Conversation, turn *domain.Turn, err error) {
	if s.observe != nil {
		s.observe(err)
	}
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.broadcast(before, turn.Snapshot)
	writeJSON(w, http.StatusOK, runner.NewResponse(turn))
}

// snapshotForDiff reads the thread only when someone is listening.
func (s *Server) snapshotForDiff(ctx context.Context, threadID string) *domain.Conversation {
	if s.streams.Subscribers(threadID) == 0 {
		return nil
	}
	conv, err := s.bot.Snapshot(ctx, threadID)
	if err != nil {
		return nil
	}
	return conv
}

func (s *Server) broadcast(before, after *domain.Conversation) {
	if after == nil || s.streams.Subscribers(after.ThreadID) == 0 {
		return
	}
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	raw, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode diff", "thread_id", after.ThreadID, "err", err)
		return
	}
	s.streams.Broadcast(after.ThreadID, string(raw))
}

// ListThreads handles GET /threads.
func (s *Server) ListThreads(w http.ResponseWriter, r *http.Request) {
	ids, err := s.bot.Threads(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"threads": ids})
}

// GetThread handles GET /threads/{threadID}.
func (s *Server) GetThread(w http.ResponseWriter, r *http.Request) {
	conv, err := s.bot.Snapshot(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteThread handles DELETE /threads/{threadID}.
func (s *Server) DeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.bot.Forget(r.Context(), chi.URLParam(r, "threadID")); err != nil && !errors.Is(err, domain.ErrThreadNotFound) {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles GET /threads/{threadID}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, s.logger, errors.New("streaming not supported"))
		return
	}
	threadID := chi.URLParam(r, "threadID")

	ch, cancel := s.streams.Subscribe(threadID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("sse client connected", "thread_id", threadID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "thread_id", threadID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "concierge",
		"version":     concierge.Version,
		"api_version": apiVersion,
	})
}

// NewServer wraps handler with the configured timeouts. SSE streams end at
// the write timeout; clients are expected to reconnect.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
