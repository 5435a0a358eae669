// Package mcp exposes the assistant as a Model Context Protocol server so
// other agents can hold patient conversations through it.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/runner"
	"github.com/aretw0/concierge/pkg/specialist"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Resource URIs.
const (
	RosterURI = "concierge://roster"
	GraphURI  = "concierge://graph"
)

// Assistant is the part of *concierge.Assistant the MCP server needs.
type Assistant interface {
	Chat(ctx context.Context, threadID, userContextID, text string) (*domain.Turn, error)
	Resume(ctx context.Context, threadID string, d concierge.Decision) (*domain.Turn, error)
	Snapshot(ctx context.Context, threadID string) (*domain.Conversation, error)
	Roster() *specialist.Roster
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	ThreadID      string `json:"thread_id"`
	UserContextID string `json:"user_context_id"`
	Message       string `json:"message"`
}

// ResumeArgs are the arguments of the resume tool.
type ResumeArgs struct {
	ThreadID       string `json:"thread_id"`
	Approve        bool   `json:"approve"`
	Reason         string `json:"reason"`
	ConfirmationID string `json:"confirmation_id"`
}

// ThreadArgs name a thread.
type ThreadArgs struct {
	ThreadID string `json:"thread_id"`
}

// AgentInfo describes one roster entry.
type AgentInfo struct {
	ID             domain.AgentID `json:"id"`
	Name           string         `json:"name,omitempty"`
	TransferTool   string         `json:"transfer_tool,omitempty"`
	SafeTools      []string       `json:"safe_tools"`
	SensitiveTools []string       `json:"sensitive_tools"`
}

// Server wraps the Assistant and exposes it as an MCP Server.
type Server struct {
	bot       Assistant
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bot Assistant, opts ...Option) *Server {
	s := &Server{
		bot:       bot,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("concierge-mcp", concierge.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a patient message to a thread. The reply may hold a pending confirmation that must be answered with resume."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The patient's message")),
		mcp.WithString("user_context_id", mcp.Description("Patient id used to personalise the thread (optional)")),
		mcp.WithOutputSchema[runner.Response](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	resumeTool := mcp.NewTool("resume",
		mcp.WithDescription("Approve or reject the pending sensitive actions of a thread."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
		mcp.WithBoolean("approve", mcp.Required(), mcp.Description("True to run the actions")),
		mcp.WithString("reason", mcp.Description("Why the actions were rejected")),
		mcp.WithString("confirmation_id", mcp.Description("Id of the confirmation being answered (optional)")),
		mcp.WithOutputSchema[runner.Response](),
	)
	s.mcpServer.AddTool(resumeTool, mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("get_thread",
		mcp.WithDescription("Read the checkpointed state of a thread."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
	), s.handleGetThread)
}

func (s *Server) handleChat(ctx context.Context, _ mcp.CallToolRequest, args ChatArgs) (runner.Response, error) {
	if args.ThreadID == "" {
		return runner.Response{}, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidInput)
	}
	msg, err := runner.SanitizeInput(args.Message)
	if err != nil {
		s.logger.Warn("MCP chat: input rejected", "err", err, "size", len(args.Message))
		return runner.Response{}, fmt.Errorf("input rejected: %w", err)
	}

	turn, err := s.bot.Chat(ctx, args.ThreadID, args.UserContextID, msg)
	if err != nil {
		return runner.Response{}, s.failure("chat", args.ThreadID, err)
	}
	return *runner.NewResponse(turn), nil
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args ResumeArgs) (runner.Response, error) {
	if args.ThreadID == "" {
		return runner.Response{}, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidInput)
	}
	if args.Reason != "" {
		reason, err := runner.SanitizeInput(args.Reason)
		if err != nil {
			return runner.Response{}, fmt.Errorf("reason rejected: %w", err)
		}
		args.Reason = reason
	}

	turn, err := s.bot.Resume(ctx, args.ThreadID, concierge.Decision{
		Approve:        args.Approve,
		Reason:         args.Reason,
		ConfirmationID: args.ConfirmationID,
	})
	if err != nil {
		return runner.Response{}, s.failure("resume", args.ThreadID, err)
	}
	return *runner.NewResponse(turn), nil
}

func (s *Server) failure(op, threadID string, err error) error {
	s.logger.Error("MCP "+op+" failed", "thread_id", threadID, "err", err)
	return fmt.Errorf("%s failed: %w", op, err)
}

func (s *Server) handleGetThread(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadID, err := request.RequireString("thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	conv, err := s.bot.Snapshot(ctx, threadID)
	if err != nil {
		return mcp.NewToolResultError(domain.UserMessage(err)), nil
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(RosterURI, "Agent Roster",
		mcp.WithResourceDescription("The router and the specialists with their tools"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		raw, err := json.Marshal(Agents(s.bot.Roster()))
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: RosterURI, MIMEType: "application/json", Text: string(raw)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Routing Graph",
		mcp.WithResourceDescription("Mermaid flowchart of transfers and escalations"),
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(s.bot.Roster(), nil),
			},
		}, nil
	})
}

// Agents lists the router followed by the specialists.
func Agents(roster *specialist.Roster) []AgentInfo {
	var out []AgentInfo
	if router, ok := roster.Agent(domain.Router); ok {
		out = append(out, info(router))
	}
	for _, cfg := range roster.Specialists() {
		out = append(out, info(cfg))
	}
	return out
}

func info(cfg specialist.Config) AgentInfo {
	a := AgentInfo{
		ID:             cfg.ID,
		Name:           cfg.Name,
		SafeTools:      append([]string{}, cfg.SafeTools...),
		SensitiveTools: append([]string{}, cfg.SensitiveTools...),
	}
	if cfg.Transfer != nil {
		a.TransferTool = cfg.Transfer.Tool
	}
	return a
}
