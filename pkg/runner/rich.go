package runner

import (
	"github.com/aretw0/concierge/pkg/domain"
)

// Response is the turn shape returned to rich clients (HTTP, MCP).
// It flattens the pending confirmation so a client can answer it without
// scanning the outputs.
type Response struct {
	ThreadID string                      `json:"thread_id"`
	Status   domain.Status               `json:"status"`
	Active   domain.AgentID              `json:"active"`
	Stack    domain.DialogStack          `json:"dialog_stack"`
	Text     string                      `json:"text,omitempty"`
	Outputs  []domain.Output             `json:"outputs"`
	Pending  *domain.PendingConfirmation `json:"pending,omitempty"`
}

// NewResponse builds the rich response for a turn.
func NewResponse(turn *domain.Turn) *Response {
	resp := &Response{
		ThreadID: turn.ThreadID,
		Status:   turn.Status,
		Active:   turn.Active,
		Stack:    domain.DialogStack{},
		Text:     turn.Text(),
		Outputs:  turn.Outputs,
		Pending:  turn.Pending(),
	}
	if resp.Outputs == nil {
		resp.Outputs = []domain.Output{}
	}
	if turn.Snapshot != nil && len(turn.Snapshot.DialogStack) > 0 {
		resp.Stack = append(resp.Stack, turn.Snapshot.DialogStack...)
	}
	return resp
}
