package concierge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/runtime"
	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/session"
	"github.com/aretw0/concierge/pkg/specialist"
)

// Decision answers a pending confirmation.
type Decision = runtime.Decision

// TurnError is the fatal failure of a turn.
type TurnError = runtime.TurnError

// Assistant is the high-level entry point of the library.
// It wraps the routing engine with thread locking and checkpointing.
type Assistant struct {
	engine   *runtime.Engine
	sessions *session.Manager
	store    ports.CheckpointStore
	logger   *slog.Logger

	hooks       domain.LifecycleHooks
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	profiles    ports.UserContextProvider
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Assistant.
type Option func(*Assistant)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = a.hooks.Merge(hooks)
	}
}

// WithCheckpointStore sets where threads are persisted (default: in memory).
func WithCheckpointStore(store ports.CheckpointStore) Option {
	return func(a *Assistant) {
		a.store = store
	}
}

// WithLocker serializes threads across replicas.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(a *Assistant) {
		a.locker = locker
		a.lockTTL = ttl
	}
}

// WithUserContextProvider snapshots the patient profile when a thread starts.
func WithUserContextProvider(p ports.UserContextProvider) Option {
	return func(a *Assistant) {
		a.profiles = p
	}
}

// WithMaxSteps bounds the nodes a single turn may execute.
func WithMaxSteps(n int) Option {
	return func(a *Assistant) {
		a.runtimeOpts = append(a.runtimeOpts, runtime.WithMaxSteps(n))
	}
}

// WithMaxModelAttempts bounds re-prompts after an empty model answer.
func WithMaxModelAttempts(n int) Option {
	return func(a *Assistant) {
		a.runtimeOpts = append(a.runtimeOpts, runtime.WithMaxModelAttempts(n))
	}
}

// WithToolConcurrency bounds parallel execution of safe tools.
func WithToolConcurrency(n int) Option {
	return func(a *Assistant) {
		a.runtimeOpts = append(a.runtimeOpts, runtime.WithToolConcurrency(n))
	}
}

// WithGeneration sets sampling parameters for every model call.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(a *Assistant) {
		a.runtimeOpts = append(a.runtimeOpts, runtime.WithGeneration(temperature, maxTokens))
	}
}

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.runtimeOpts = append(a.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes an Assistant routing between the agents of roster.
func New(roster *specialist.Roster, model ports.Model, opts ...Option) (*Assistant, error) {
	if roster == nil {
		return nil, errors.New("roster is required")
	}
	if model == nil {
		return nil, errors.New("model is required")
	}

	a := &Assistant{}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(a.logger)}
	if a.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(a.locker), session.WithLockTTL(a.lockTTL))
	}
	if a.profiles != nil {
		sessionOpts = append(sessionOpts, session.WithUserContextProvider(a.profiles))
	}
	a.sessions = session.NewManager(a.store, sessionOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(a.logger),
		runtime.WithLifecycleHooks(a.hooks),
		runtime.WithCheckpointStore(a.store),
	}
	// User-supplied options win over the defaults above.
	runtimeOpts = append(runtimeOpts, a.runtimeOpts...)
	a.engine = runtime.NewEngine(roster, model, runtimeOpts...)

	return a, nil
}

// Chat processes an inbound user message on a thread, starting it if needed.
// userContextID identifies the patient; it may be empty for anonymous threads.
func (a *Assistant) Chat(ctx context.Context, threadID, userContextID, text string) (*domain.Turn, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidInput)
	}

	var turn *domain.Turn
	err := a.sessions.UpdateOrStart(ctx, threadID, userContextID, func(ctx context.Context, conv *domain.Conversation) error {
		var err error
		turn, err = a.engine.Send(ctx, conv, text)
		return err
	})
	return turn, err
}

// Resume answers the pending confirmation of a thread.
func (a *Assistant) Resume(ctx context.Context, threadID string, d Decision) (*domain.Turn, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidInput)
	}

	var turn *domain.Turn
	err := a.sessions.Update(ctx, threadID, func(ctx context.Context, conv *domain.Conversation) error {
		var err error
		turn, err = a.engine.Resume(ctx, conv, d)
		return err
	})
	return turn, err
}

// Snapshot returns the checkpointed state of a thread.
func (a *Assistant) Snapshot(ctx context.Context, threadID string) (*domain.Conversation, error) {
	return a.sessions.Load(ctx, threadID)
}

// Threads lists the ids of every persisted thread.
func (a *Assistant) Threads(ctx context.Context) ([]string, error) {
	return a.sessions.List(ctx)
}

// Forget deletes a thread.
func (a *Assistant) Forget(ctx context.Context, threadID string) error {
	return a.sessions.Delete(ctx, threadID)
}

// Roster returns the agents the assistant routes between.
func (a *Assistant) Roster() *specialist.Roster {
	return a.engine.Roster()
}

// Store returns the checkpoint store threads are persisted in.
func (a *Assistant) Store() ports.CheckpointStore {
	return a.store
}
