package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a thread.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates thread access, ensuring one thread is advanced by one
// caller at a time. It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.CheckpointStore

	mu    sync.Mutex            // Global lock for the map, never held across I/O
	locks map[string]*lockEntry // Map of active locks

	locker   ports.DistributedLocker   // Optional distributed locker
	lockTTL  time.Duration             // TTL of the distributed lock
	profiles ports.UserContextProvider // Optional user-context source for new threads
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithUserContextProvider loads the profile snapshot when a thread starts.
func WithUserContextProvider(p ports.UserContextProvider) Option {
	return func(m *Manager) {
		m.profiles = p
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used to stamp new threads.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new thread Manager with the given checkpoint store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(threadID) after unlocking.
func (m *Manager) acquire(threadID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		entry = &lockEntry{}
		m.locks[threadID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, threadID)
	}
}

// Load retrieves an existing thread from the store.
func (m *Manager) Load(ctx context.Context, threadID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, threadID)
		return err
	})
	return conv, err
}

// LoadOrStart loads a thread, creating and persisting it if it does not exist.
func (m *Manager) LoadOrStart(ctx context.Context, threadID, userContextID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		conv, err = m.loadOrStart(ctx, threadID, userContextID)
		return err
	})
	return conv, err
}

// Update runs fn on an existing thread while holding its lock.
func (m *Manager) Update(ctx context.Context, threadID string, fn func(context.Context, *domain.Conversation) error) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		conv, err := m.store.Load(ctx, threadID)
		if err != nil {
			return err
		}
		return fn(ctx, conv)
	})
}

// UpdateOrStart runs fn on a thread, starting it first if needed, while holding its lock.
func (m *Manager) UpdateOrStart(ctx context.Context, threadID, userContextID string, fn func(context.Context, *domain.Conversation) error) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		conv, err := m.loadOrStart(ctx, threadID, userContextID)
		if err != nil {
			return err
		}
		return fn(ctx, conv)
	})
}

func (m *Manager) loadOrStart(ctx context.Context, threadID, userContextID string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, threadID)
	if err == nil {
		// An owned thread only answers to its owner; anonymous callers included.
		if conv.UserContextID != "" && conv.UserContextID != userContextID {
			return nil, fmt.Errorf("%w: thread %s belongs to another user", domain.ErrUnauthorizedAccess, threadID)
		}
		return conv, nil
	}
	if !errors.Is(err, domain.ErrThreadNotFound) {
		return nil, fmt.Errorf("failed to check thread existence: %w", err)
	}

	conv = domain.NewConversation(threadID, userContextID, m.now())
	if m.profiles != nil && userContextID != "" {
		profile, err := m.profiles.FetchUserContext(ctx, userContextID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch user context: %w", err)
		}
		conv.UserContext = profile
	}

	// Persist immediately to reserve the ID
	if err := m.store.Save(ctx, threadID, conv); err != nil {
		return nil, fmt.Errorf("failed to initialize thread: %w", err)
	}
	m.logger.Debug("thread started", "thread_id", threadID, "user_context_id", userContextID)
	return conv, nil
}

// Save persists the conversation.
func (m *Manager) Save(ctx context.Context, threadID string, conv *domain.Conversation) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		return m.store.Save(ctx, threadID, conv)
	})
}

// Delete removes the thread from the store.
func (m *Manager) Delete(ctx context.Context, threadID string) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		return m.store.Delete(ctx, threadID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

// WithLock executes a function while holding the lock for the thread. With a
// ports.LeaseLocker the lock is renewed while fn runs, and fn's context is
// canceled with ports.ErrLockLost if it cannot be kept.
func (m *Manager) WithLock(ctx context.Context, threadID string, fn func(context.Context) error) error {
	entry := m.acquire(threadID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(threadID)
	}()

	if m.locker != nil {
		var (
			unlock ports.UnlockFunc
			err    error
		)
		if lease, ok := m.locker.(ports.LeaseLocker); ok {
			// fn runs under the lease: losing the lock cancels it.
			ctx, unlock, err = lease.Hold(ctx, threadID, m.lockTTL)
		} else {
			unlock, err = m.locker.Lock(ctx, threadID, m.lockTTL)
		}
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release even when ctx was canceled mid-turn.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"thread_id", threadID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
