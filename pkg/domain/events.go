package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventInterrupt  EventType = "interrupt"
	EventResume     EventType = "resume"
	EventSignal     EventType = "signal"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ThreadID  string    `json:"thread_id"`
}

// NodeEvent represents entry or exit from a graph node.
type NodeEvent struct {
	EventBase
	Node  string  `json:"node"`
	Agent AgentID `json:"agent"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	Agent      AgentID       `json:"agent"`
	ToolName   string        `json:"tool_name"`
	Capability Capability    `json:"capability,omitempty"`
	Input      any           `json:"input,omitempty"`
	Output     any           `json:"output,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// GateEvent represents a suspension at, or a resume from, the confirmation gate.
type GateEvent struct {
	EventBase
	Agent    AgentID `json:"agent"`
	Pending  string  `json:"pending_id"`
	Approved bool    `json:"approved,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// SignalEvent represents an escalation or transfer being applied.
type SignalEvent struct {
	EventBase
	From   AgentID `json:"from"`
	To     AgentID `json:"to"`
	Signal Signal  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnInterrupt  func(context.Context, *GateEvent)
	OnResume     func(context.Context, *GateEvent)
	OnSignal     func(context.Context, *SignalEvent)
}

// Merge combines hooks so that both are called, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:  chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:  chain(h.OnNodeLeave, other.OnNodeLeave),
		OnToolCall:   chain(h.OnToolCall, other.OnToolCall),
		OnToolReturn: chain(h.OnToolReturn, other.OnToolReturn),
		OnInterrupt:  chain(h.OnInterrupt, other.OnInterrupt),
		OnResume:     chain(h.OnResume, other.OnResume),
		OnSignal:     chain(h.OnSignal, other.OnSignal),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
