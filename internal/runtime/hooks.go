package runtime

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

func (e *Engine) base(t domain.EventType, conv *domain.Conversation) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, ThreadID: conv.ThreadID}
}

func (e *Engine) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), t domain.EventType, conv *domain.Conversation, node domain.Node) {
	if hook == nil {
		return
	}
	agent := node.Agent
	if agent == "" {
		agent = conv.Active()
	}
	hook(ctx, &domain.NodeEvent{EventBase: e.base(t, conv), Node: node.String(), Agent: agent})
}

func (e *Engine) emitResume(ctx context.Context, conv *domain.Conversation, approved bool, reason string) {
	e.logger.Info("confirmation answered", "thread_id", conv.ThreadID, "agent", conv.Pending.Agent, "approved", approved)
	if e.hooks.OnResume == nil {
		return
	}
	e.hooks.OnResume(ctx, &domain.GateEvent{
		EventBase: e.base(domain.EventResume, conv),
		Agent:     conv.Pending.Agent,
		Pending:   conv.Pending.ID,
		Approved:  approved,
		Reason:    reason,
	})
}

func (e *Engine) emitSignal(ctx context.Context, conv *domain.Conversation, from, to domain.AgentID, sig domain.Signal) {
	if e.hooks.OnSignal == nil {
		return
	}
	e.hooks.OnSignal(ctx, &domain.SignalEvent{EventBase: e.base(domain.EventSignal, conv), From: from, To: to, Signal: sig})
}
