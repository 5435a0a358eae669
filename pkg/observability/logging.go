package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/concierge/pkg/domain"
)

// LogHooks writes one structured line per lifecycle event. Node and tool
// events go out at debug level; gate and routing events at info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "thread_id", e.ThreadID, "node", e.Node, "agent", e.Agent)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "thread_id", e.ThreadID, "node", e.Node, "agent", e.Agent)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "thread_id", e.ThreadID, "agent", e.Agent, "tool", e.ToolName, "capability", e.Capability)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "thread_id", e.ThreadID, "agent", e.Agent, "tool", e.ToolName,
				"is_error", e.IsError, "duration", e.Duration)
		},
		OnInterrupt: func(ctx context.Context, e *domain.GateEvent) {
			logger.InfoContext(ctx, "interrupt", "thread_id", e.ThreadID, "agent", e.Agent, "pending_id", e.Pending)
		},
		OnResume: func(ctx context.Context, e *domain.GateEvent) {
			logger.InfoContext(ctx, "resume", "thread_id", e.ThreadID, "agent", e.Agent, "pending_id", e.Pending, "approved", e.Approved)
		},
		OnSignal: func(ctx context.Context, e *domain.SignalEvent) {
			logger.InfoContext(ctx, "signal", "thread_id", e.ThreadID, "kind", SignalKind(e.Signal), "from", e.From, "to", e.To)
		},
	}
}
