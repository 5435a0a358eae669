// Package runtime is the dialog-state routing engine: it advances a
// Conversation through agent, tool, entry and leave nodes until the model
// answers the user or a sensitive batch suspends at the confirmation gate.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/specialist"
	"github.com/google/uuid"
)

const (
	DefaultMaxSteps         = 25
	DefaultMaxModelAttempts = 3
	DefaultToolConcurrency  = 4
)

// Decision answers a pending confirmation.
type Decision struct {
	Approve bool
	Reason  string
	// ConfirmationID must match the pending confirmation when set.
	ConfirmationID string
}

// Engine is the routing state machine. It is stateless between calls: every
// method works on the Conversation it is given, which the caller must not
// share with another goroutine for the duration of the call.
type Engine struct {
	roster *specialist.Roster
	model  ports.Model
	store  ports.CheckpointStore

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	maxSteps        int
	maxAttempts     int
	toolConcurrency int
	temperature     float64
	maxTokens       int

	now   func() time.Time
	newID func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithCheckpointStore persists the conversation after every step.
func WithCheckpointStore(store ports.CheckpointStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMaxSteps bounds the number of nodes a single turn may execute.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithMaxModelAttempts bounds the re-prompts after degenerate model output.
func WithMaxModelAttempts(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithToolConcurrency bounds parallel execution of a safe batch.
func WithToolConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.toolConcurrency = n
		}
	}
}

// WithGeneration sets the sampling parameters passed to the model.
func WithGeneration(temperature float64, maxTokens int) EngineOption {
	return func(e *Engine) {
		e.temperature = temperature
		e.maxTokens = maxTokens
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides message and confirmation id generation.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates an engine routing between the agents of roster.
func NewEngine(roster *specialist.Roster, model ports.Model, opts ...EngineOption) *Engine {
	e := &Engine{
		roster:          roster,
		model:           model,
		logger:          logging.NewNop(),
		maxSteps:        DefaultMaxSteps,
		maxAttempts:     DefaultMaxModelAttempts,
		toolConcurrency: DefaultToolConcurrency,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Roster returns the agents the engine routes between.
func (e *Engine) Roster() *specialist.Roster { return e.roster }

// Send processes an inbound user message.
//
// A thread left mid-turn by a crash is advanced first. A message arriving
// while a confirmation is pending rejects it, with the text as the reason.
func (e *Engine) Send(ctx context.Context, conv *domain.Conversation, text string) (*domain.Turn, error) {
	turn := &domain.Turn{ThreadID: conv.ThreadID}

	if conv.Status == domain.StatusRunning {
		e.logger.Warn("recovering interrupted turn", "thread_id", conv.ThreadID, "node", conv.Next.String())
		if err := e.run(ctx, conv, turn); err != nil {
			return e.finish(conv, turn), err
		}
	}

	if conv.Status == domain.StatusPendingConfirmation {
		e.reject(ctx, conv, text)
		return e.advance(ctx, conv, turn)
	}

	conv.Append(domain.Message{
		ID:        e.newID(),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: e.now(),
	})
	// Specialists stay sticky: the top of the stack answers directly.
	conv.Next = domain.AgentNode(conv.Active())
	return e.advance(ctx, conv, turn)
}

// Resume answers the pending confirmation of conv.
func (e *Engine) Resume(ctx context.Context, conv *domain.Conversation, d Decision) (*domain.Turn, error) {
	if conv.Status != domain.StatusPendingConfirmation || conv.Pending == nil {
		return nil, domain.ErrNoPendingConfirmation
	}
	if d.ConfirmationID != "" && d.ConfirmationID != conv.Pending.ID {
		return nil, fmt.Errorf("%w: got %s, pending %s", domain.ErrStaleConfirmation, d.ConfirmationID, conv.Pending.ID)
	}

	turn := &domain.Turn{ThreadID: conv.ThreadID}
	if !d.Approve {
		e.reject(ctx, conv, d.Reason)
		return e.advance(ctx, conv, turn)
	}

	e.emitResume(ctx, conv, true, "")
	conv.Next = domain.SensitiveToolsNode(conv.Pending.Agent)
	return e.advance(ctx, conv, turn)
}

// reject answers every pending call with a denial and hands control back to
// the agent that asked.
func (e *Engine) reject(ctx context.Context, conv *domain.Conversation, reason string) {
	p := conv.Pending
	e.emitResume(ctx, conv, false, reason)

	now := e.now()
	for _, call := range p.Calls {
		conv.Append(domain.Message{
			ID:         e.newID(),
			Role:       domain.RoleTool,
			Agent:      p.Agent,
			Name:       call.Name,
			ToolCallID: call.ID,
			Content:    specialist.DeniedMessage(reason),
			IsError:    true,
			CreatedAt:  now,
		})
	}
	conv.Pending = nil
	conv.Next = domain.AgentNode(p.Agent)
}

// advance marks the conversation running, checkpoints it and runs the loop.
func (e *Engine) advance(ctx context.Context, conv *domain.Conversation, turn *domain.Turn) (*domain.Turn, error) {
	conv.Status = domain.StatusRunning
	if err := e.checkpoint(ctx, conv); err != nil {
		return e.finish(conv, turn), err
	}
	err := e.run(ctx, conv, turn)
	return e.finish(conv, turn), err
}

// run executes nodes until the turn ends, suspends or fails.
func (e *Engine) run(ctx context.Context, conv *domain.Conversation, turn *domain.Turn) error {
	for steps := 0; !conv.Next.IsTerminal(); steps++ {
		node := conv.Next
		if steps >= e.maxSteps {
			return e.fail(ctx, conv, node, fmt.Errorf("%w: %d steps", domain.ErrStepLimit, e.maxSteps))
		}
		if ctx.Err() != nil {
			return &TurnError{ThreadID: conv.ThreadID, Node: node, Err: context.Cause(ctx)}
		}

		e.emitNode(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, conv, node)
		suspended, err := e.step(ctx, conv, node, turn)
		if err != nil {
			return e.fail(ctx, conv, node, err)
		}
		e.emitNode(ctx, e.hooks.OnNodeLeave, domain.EventNodeLeave, conv, node)

		conv.Version++
		if suspended {
			return e.checkpoint(ctx, conv)
		}
		if conv.Next.IsTerminal() {
			conv.Status = domain.StatusIdle
		}
		if err := e.checkpoint(ctx, conv); err != nil {
			return err
		}
	}
	conv.Status = domain.StatusIdle
	return nil
}

// step executes one node. It reports whether the conversation suspended at the gate.
func (e *Engine) step(ctx context.Context, conv *domain.Conversation, node domain.Node, turn *domain.Turn) (bool, error) {
	switch node.Kind {
	case domain.KindAgent:
		msg, err := e.invoke(ctx, conv, node.Agent)
		if err != nil {
			return false, err
		}
		conv.Append(msg)
		if strings.TrimSpace(msg.Content) != "" {
			turn.Outputs = append(turn.Outputs, domain.Output{
				Type:      domain.OutputText,
				Agent:     msg.Agent,
				Text:      msg.Content,
				MessageID: msg.ID,
			})
		}
		return e.route(ctx, conv, node.Agent, msg, turn), nil
	case domain.KindEntry:
		return false, e.enter(ctx, conv, node.Agent)
	case domain.KindLeaveSkill:
		return false, e.leave(ctx, conv)
	case domain.KindSafeTools:
		return false, e.runSafe(ctx, conv, node.Agent)
	case domain.KindSensitiveTools:
		return false, e.runSensitive(ctx, conv, node.Agent)
	}
	return false, fmt.Errorf("unknown node %q", node.String())
}

// fail records a fatal error: the thread returns to await_user with every
// completed step kept.
func (e *Engine) fail(ctx context.Context, conv *domain.Conversation, node domain.Node, err error) error {
	e.logger.Error("turn failed", "thread_id", conv.ThreadID, "node", node.String(), "err", err)

	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		// Every call in the log keeps a result, even when the turn is abandoned.
		if calls, lerr := lastCalls(conv); lerr == nil {
			for _, call := range calls {
				e.appendTool(conv, node.Agent, call, specialist.ToolErrorMessage(err), true)
			}
		}
		conv.Next = domain.AwaitUser
		conv.Status = domain.StatusIdle
		if serr := e.checkpoint(context.WithoutCancel(ctx), conv); serr != nil {
			e.logger.Error("checkpoint after failure", "thread_id", conv.ThreadID, "err", serr)
		}
	}
	return &TurnError{ThreadID: conv.ThreadID, Node: node, Err: err}
}

func (e *Engine) checkpoint(ctx context.Context, conv *domain.Conversation) error {
	conv.UpdatedAt = e.now()
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(ctx, conv.ThreadID, conv); err != nil {
		return fmt.Errorf("checkpoint thread %s: %w", conv.ThreadID, err)
	}
	return nil
}

func (e *Engine) finish(conv *domain.Conversation, turn *domain.Turn) *domain.Turn {
	turn.Status = conv.Status
	turn.Active = conv.Active()
	if turn.Outputs == nil {
		turn.Outputs = []domain.Output{}
	}
	turn.Snapshot = conv.Clone()
	return turn
}
