package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
)

// route picks the node that follows an agent output and reports whether the
// conversation suspended at the gate.
//
// Escalation beats transfer, which beats tool execution; a batch with any
// sensitive call is gated as a whole.
func (e *Engine) route(ctx context.Context, conv *domain.Conversation, id domain.AgentID, msg domain.Message, turn *domain.Turn) bool {
	if !msg.HasToolCalls() {
		conv.Next = domain.AwaitUser
		return false
	}

	var transfer *domain.Transfer
	for _, call := range msg.ToolCalls {
		sig, ok := e.roster.Signal(id, call)
		if !ok {
			continue
		}
		switch s := sig.(type) {
		case domain.Escalation:
			conv.Next = domain.LeaveSkill
			return false
		case domain.Transfer:
			if transfer == nil {
				transfer = &s
			}
		}
	}
	if transfer != nil {
		conv.Next = domain.EntryNode(transfer.Target)
		return false
	}

	for _, call := range msg.ToolCalls {
		if c, ok := e.roster.Capability(id, call.Name); ok && c == domain.Sensitive {
			e.suspend(ctx, conv, id, msg.ToolCalls, turn)
			return true
		}
	}

	// Unknown names land here too and come back as ToolNotFound results.
	conv.Next = domain.SafeToolsNode(id)
	return false
}

// suspend parks the conversation before the sensitive batch runs.
func (e *Engine) suspend(ctx context.Context, conv *domain.Conversation, id domain.AgentID, calls []domain.ToolCall, turn *domain.Turn) {
	pending := &domain.PendingConfirmation{
		ID:          e.newID(),
		Agent:       id,
		Calls:       append([]domain.ToolCall(nil), calls...),
		Description: Describe(calls),
		RequestedAt: e.now(),
	}
	conv.Pending = pending
	conv.Status = domain.StatusPendingConfirmation
	conv.Next = domain.SensitiveToolsNode(id)

	turn.Outputs = append(turn.Outputs, domain.Output{
		Type:         domain.OutputConfirmation,
		Agent:        id,
		Text:         pending.Description,
		Confirmation: pending,
	})

	e.logger.Info("awaiting confirmation", "thread_id", conv.ThreadID, "agent", id, "pending_id", pending.ID, "calls", len(calls))
	if e.hooks.OnInterrupt != nil {
		e.hooks.OnInterrupt(ctx, &domain.GateEvent{
			EventBase: e.base(domain.EventInterrupt, conv),
			Agent:     id,
			Pending:   pending.ID,
		})
	}
}

// Describe renders a human-readable summary of a pending batch.
func Describe(calls []domain.ToolCall) string {
	var b strings.Builder
	b.WriteString("The assistant wants to perform the following action(s):")
	for _, c := range calls {
		args, err := json.Marshal(c.Args)
		if err != nil {
			args = []byte(fmt.Sprint(c.Args))
		}
		fmt.Fprintf(&b, "\n- %s %s", c.Name, args)
	}
	return b.String()
}
