package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
)

// Assistant is the part of *concierge.Assistant the runner drives.
type Assistant interface {
	Chat(ctx context.Context, threadID, userContextID, text string) (*domain.Turn, error)
	Resume(ctx context.Context, threadID string, d concierge.Decision) (*domain.Turn, error)
}

// Runner handles the chat loop of one thread using the provided IO.
type Runner struct {
	Handler  IOHandler
	Approver Approver
	Logger   *slog.Logger

	QuitWords       []string
	InterruptSource <-chan struct{}

	bot     Assistant
	observe func(error)
	printed map[string]bool
}

// New creates a Runner for bot. Without WithHandler it talks over stdin/stdout.
func New(bot Assistant, opts ...Option) *Runner {
	r := &Runner{
		bot:       bot,
		QuitWords: DefaultQuitWords,
		printed:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Approver == nil {
		r.Approver = PromptApprover(r.Handler)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run reads messages until EOF, a quit word, an interrupt at the prompt, or
// the cancellation of ctx. A failed turn is reported and the loop goes on:
// the thread keeps every step completed before the failure.
func (r *Runner) Run(ctx context.Context, threadID, userContextID string) error {
	signals := NewSignalManager(r.InterruptSource)
	defer signals.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		inputCtx, stop := mergeDone(ctx, signals.Context())
		input, err := r.Handler.Input(inputCtx)
		stop()
		if err != nil {
			signals.CheckRace()
			if signals.Interrupted() || errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("input error: %w", err)
		}
		if r.isQuit(input) {
			return nil
		}

		turnCtx, stop := mergeDone(ctx, signals.Context())
		turn, err := r.bot.Chat(turnCtx, threadID, userContextID, input)
		r.observeTurn(err)
		if err == nil {
			err = r.settle(turnCtx, threadID, turn)
		}
		stop()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if signals.Interrupted() {
				_ = r.Handler.SystemOutput(ctx, "Interrupted.")
				signals.Reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			r.Logger.Error("turn failed", "thread_id", threadID, "err", err)
			if outErr := r.Handler.SystemOutput(ctx, "Error: "+domain.UserMessage(err)); outErr != nil {
				return outErr
			}
		}
	}
}

// settle prints the turn and answers confirmations until the thread is idle.
func (r *Runner) settle(ctx context.Context, threadID string, turn *domain.Turn) error {
	for {
		if err := r.print(ctx, turn); err != nil {
			return err
		}
		pending := turn.Pending()
		if pending == nil {
			return nil
		}

		decision, err := r.Approver(ctx, pending)
		if err != nil {
			return err
		}
		r.Logger.Debug("confirmation decided", "thread_id", threadID, "pending_id", pending.ID, "approved", decision.Approve)

		turn, err = r.bot.Resume(ctx, threadID, decision)
		r.observeTurn(err)
		if err != nil {
			return err
		}
	}
}

// print hands the handler the outputs it has not seen yet.
func (r *Runner) print(ctx context.Context, turn *domain.Turn) error {
	fresh := make([]domain.Output, 0, len(turn.Outputs))
	for _, out := range turn.Outputs {
		if out.MessageID != "" {
			if r.printed[out.MessageID] {
				continue
			}
			r.printed[out.MessageID] = true
		}
		fresh = append(fresh, out)
	}
	if len(fresh) == 0 {
		return nil
	}
	return r.Handler.Output(ctx, fresh)
}

func (r *Runner) isQuit(input string) bool {
	return slices.Contains(r.QuitWords, strings.ToLower(strings.TrimSpace(input)))
}

func (r *Runner) observeTurn(err error) {
	if r.observe != nil {
		r.observe(err)
	}
}

// mergeDone returns a context cancelled when either parent is.
func mergeDone(ctx, signal context.Context) (context.Context, func()) {
	merged, cancel := context.WithCancel(ctx)
	unregister := context.AfterFunc(signal, cancel)
	return merged, func() {
		unregister()
		cancel()
	}
}
