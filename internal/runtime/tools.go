package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/aretw0/concierge/pkg/specialist"
	"golang.org/x/sync/errgroup"
)

// lastCalls returns the tool calls of the latest assistant message.
func lastCalls(conv *domain.Conversation) ([]domain.ToolCall, error) {
	msg, ok := conv.LastMessage()
	if !ok || msg.Role != domain.RoleAssistant || !msg.HasToolCalls() {
		return nil, fmt.Errorf("no tool calls to act on")
	}
	return msg.ToolCalls, nil
}

// enter pushes the transfer target and frames the conversation for it.
func (e *Engine) enter(ctx context.Context, conv *domain.Conversation, target domain.AgentID) error {
	calls, err := lastCalls(conv)
	if err != nil {
		return err
	}
	cfg, ok := e.roster.Agent(target)
	if !ok {
		return fmt.Errorf("unknown specialist %q", target)
	}

	var transfer *domain.Transfer
	for _, call := range calls {
		if sig, ok := e.roster.Signal(domain.Router, call); ok && transfer == nil {
			if t, ok := sig.(domain.Transfer); ok && t.Target == target {
				transfer = &t
				continue
			}
		}
		e.appendTool(conv, target, call, specialist.SkippedMessage, false)
	}
	if transfer == nil {
		return fmt.Errorf("no transfer to %q in the last message", target)
	}

	stack, err := conv.DialogStack.Push(target, e.roster.MaxDepth())
	if err != nil {
		// The router asked for a specialist that is already active; let it try again.
		e.logger.Warn("transfer rejected", "thread_id", conv.ThreadID, "agent", target, "err", err)
		e.appendTool(conv, domain.Router, domain.ToolCall{ID: transfer.Call, Name: cfg.Transfer.Tool}, specialist.ToolErrorMessage(err), true)
		conv.Next = domain.AgentNode(domain.Router)
		return nil
	}

	conv.DialogStack = stack
	e.appendTool(conv, target, domain.ToolCall{ID: transfer.Call, Name: cfg.Transfer.Tool}, specialist.EntryMessage(cfg.Name, *transfer), false)
	e.emitSignal(ctx, conv, domain.Router, target, *transfer)
	conv.Next = domain.AgentNode(target)
	return nil
}

// leave pops the stack after an escalation and returns control to the router.
func (e *Engine) leave(ctx context.Context, conv *domain.Conversation) error {
	calls, err := lastCalls(conv)
	if err != nil {
		return err
	}
	from := conv.Active()

	var escalation *domain.Escalation
	for _, call := range calls {
		if sig, ok := e.roster.Signal(from, call); ok && escalation == nil {
			if esc, ok := sig.(domain.Escalation); ok {
				escalation = &esc
				e.appendTool(conv, from, call, specialist.LeaveMessage, false)
				continue
			}
		}
		e.appendTool(conv, from, call, specialist.SkippedMessage, false)
	}

	conv.DialogStack = conv.DialogStack.Pop()
	if escalation != nil {
		e.logger.Info("escalated", "thread_id", conv.ThreadID, "agent", from, "kind", escalation.Kind, "reason", escalation.Reason)
		e.emitSignal(ctx, conv, from, domain.Router, *escalation)
	}
	conv.Next = domain.AgentNode(domain.Router)
	return nil
}

// runSafe executes the latest batch concurrently. Results are appended in
// request order once every call has returned.
func (e *Engine) runSafe(ctx context.Context, conv *domain.Conversation, id domain.AgentID) error {
	calls, err := lastCalls(conv)
	if err != nil {
		return err
	}

	results := make([]domain.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.toolConcurrency)
	for i, call := range calls {
		g.Go(func() error {
			res, err := e.execute(gctx, conv, id, call)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		e.appendTool(conv, id, calls[i], resultContent(res), res.IsError)
	}
	conv.Next = domain.AgentNode(id)
	return nil
}

// runSensitive executes exactly the approved batch, one call at a time.
// Calls that already have a result were committed by an interrupted run
// and are not executed again.
func (e *Engine) runSensitive(ctx context.Context, conv *domain.Conversation, id domain.AgentID) error {
	if conv.Pending == nil {
		return domain.ErrNoPendingConfirmation
	}
	done := answered(conv)
	for _, call := range conv.Pending.Calls {
		if done[call.ID] {
			e.logger.Info("skipping committed call", "thread_id", conv.ThreadID, "agent", id, "tool", call.Name, "call_id", call.ID)
			continue
		}
		res, err := e.execute(ctx, conv, id, call)
		if err != nil {
			return err
		}
		e.appendTool(conv, id, call, resultContent(res), res.IsError)

		// Persist each committed call before the next one starts.
		if err := e.checkpoint(context.WithoutCancel(ctx), conv); err != nil {
			return err
		}
	}
	conv.Pending = nil
	conv.Next = domain.AgentNode(id)
	return nil
}

// answered returns the ids of the calls that already have a result.
func answered(conv *domain.Conversation) map[string]bool {
	done := make(map[string]bool)
	for _, m := range conv.Messages {
		if m.Role == domain.RoleTool && m.ToolCallID != "" {
			done[m.ToolCallID] = true
		}
	}
	return done
}

// execute runs one call. Tool failures become error results; only
// cancellation is returned as an error.
func (e *Engine) execute(ctx context.Context, conv *domain.Conversation, id domain.AgentID, call domain.ToolCall) (domain.ToolResult, error) {
	capability, _ := e.roster.Capability(id, call.Name)
	event := &domain.ToolEvent{
		EventBase:  e.base(domain.EventToolCall, conv),
		Agent:      id,
		ToolName:   call.Name,
		Capability: capability,
		Input:      call.Args,
	}
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(ctx, event)
	}

	ctx = registry.WithCaller(ctx, registry.Caller{ThreadID: conv.ThreadID, UserContextID: conv.UserContextID, Agent: id})
	start := time.Now()
	out, err := e.roster.Execute(ctx, id, call)
	elapsed := time.Since(start)

	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() != nil {
		return domain.ToolResult{}, err
	}

	res := domain.ToolResult{ID: call.ID, Name: call.Name, Result: out}
	if err != nil {
		res.IsError = true
		res.Error = specialist.ToolErrorMessage(err)
		e.logger.Debug("tool failed", "thread_id", conv.ThreadID, "agent", id, "tool", call.Name, "err", err)
	}

	if e.hooks.OnToolReturn != nil {
		ret := *event
		ret.EventBase = e.base(domain.EventToolReturn, conv)
		ret.Output = out
		if res.IsError {
			ret.Output = res.Error
		}
		ret.IsError = res.IsError
		ret.Duration = elapsed
		e.hooks.OnToolReturn(ctx, &ret)
	}
	return res, nil
}

func resultContent(res domain.ToolResult) string {
	if res.IsError {
		return res.Error
	}
	switch v := res.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(res.Result)
	if err != nil {
		return fmt.Sprint(res.Result)
	}
	return string(data)
}

func (e *Engine) appendTool(conv *domain.Conversation, id domain.AgentID, call domain.ToolCall, content string, isError bool) {
	conv.Append(domain.Message{
		ID:         e.newID(),
		Role:       domain.RoleTool,
		Agent:      id,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    content,
		IsError:    isError,
		CreatedAt:  e.now(),
	})
}
