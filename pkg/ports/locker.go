package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockLost is the cancellation cause of a held lock that expired or was
// taken over by another holder.
var ErrLockLost = errors.New("distributed lock lost")

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It allows the session manager to serialize a thread across multiple instances (replicas).
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g., thread ID).
	// It blocks until the lock is acquired or the context is canceled.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// LeaseLocker is a DistributedLocker that keeps its lock alive while it is held.
//
// Hold returns a context derived from ctx that is canceled with ErrLockLost
// when the lock can no longer be renewed. Work guarded by the lock must run
// under that context.
type LeaseLocker interface {
	DistributedLocker
	Hold(ctx context.Context, key string, ttl time.Duration) (context.Context, UnlockFunc, error)
}
