package domain

import (
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a tool-invocation request emitted by an agent turn.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Message is one entry of the conversation log.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Agent     AgentID    `json:"agent,omitempty"` // author for assistant messages
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID correlates a tool message with the request that produced it.
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	IsError    bool      `json:"is_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasToolCalls reports whether the message requests tools.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Status is the gate state of a conversation.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusRunning             Status = "running"
	StatusPendingConfirmation Status = "pending_confirmation"
)

// PendingConfirmation is a sensitive batch suspended at the gate.
type PendingConfirmation struct {
	ID          string     `json:"id"`
	Agent       AgentID    `json:"agent"`
	Calls       []ToolCall `json:"calls"`
	Description string     `json:"description"`
	RequestedAt time.Time  `json:"requested_at"`
}

// Conversation is the checkpointed state of one thread.
type Conversation struct {
	ThreadID      string               `json:"thread_id"`
	UserContextID string               `json:"user_context_id,omitempty"`
	UserContext   map[string]any       `json:"user_context,omitempty"`
	Messages      []Message            `json:"messages"`
	DialogStack   DialogStack          `json:"dialog_stack"`
	Status        Status               `json:"status"`
	Next          Node                 `json:"next"`
	Pending       *PendingConfirmation `json:"pending,omitempty"`
	Version       int                  `json:"version"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	// Envelope holds the sealed form of the conversation when a store
	// middleware encrypts it. Empty for plain snapshots.
	Envelope string `json:"envelope,omitempty"`
}

// NewConversation creates an idle conversation for a thread.
func NewConversation(threadID, userContextID string, now time.Time) *Conversation {
	return &Conversation{
		ThreadID:      threadID,
		UserContextID: userContextID,
		UserContext:   make(map[string]any),
		Messages:      []Message{},
		DialogStack:   DialogStack{},
		Status:        StatusIdle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Append adds messages to the log.
func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Active returns the agent that currently owns the conversation.
func (c *Conversation) Active() AgentID {
	if top, ok := c.DialogStack.Top(); ok {
		return top
	}
	return Router
}

// Clone returns a copy that shares no mutable slices or maps with c.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	next := *c
	next.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		next.Messages[i] = cloneMessage(m)
	}
	next.DialogStack = append(DialogStack{}, c.DialogStack...)
	next.UserContext = cloneMap(c.UserContext)
	if c.Pending != nil {
		p := *c.Pending
		p.Calls = cloneCalls(c.Pending.Calls)
		next.Pending = &p
	}
	return &next
}

func cloneMessage(m Message) Message {
	m.ToolCalls = cloneCalls(m.ToolCalls)
	return m
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		c.Args = cloneMap(c.Args)
		out[i] = c
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
