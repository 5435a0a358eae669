package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/concierge/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockAcquire is returned when the lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire distributed lock")
)

// unlockScript deletes the key only if it still holds our token.
var unlockScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// renewScript extends the TTL only if the key still holds our token.
var renewScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

var (
	_ ports.DistributedLocker = (*Locker)(nil)
	_ ports.LeaseLocker       = (*Locker)(nil)
)

// Locker implements ports.LeaseLocker using Redis.
type Locker struct {
	client   *backend.Client
	prefix   string
	interval time.Duration
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client:   client,
		prefix:   prefix,
		interval: 100 * time.Millisecond,
	}
}

// Lock acquires a distributed lock for the given key. The lock is renewed
// until the returned UnlockFunc is called.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	_, unlock, err := l.Hold(ctx, key, ttl)
	return unlock, err
}

// Hold acquires the lock using Redis SET NX PX, polling until it is free or
// ctx is done, then renews it every third of ttl. The returned context is
// canceled with ports.ErrLockLost once a renewal finds another token or the
// ttl passes without a successful renewal.
func (l *Locker) Hold(ctx context.Context, key string, ttl time.Duration) (context.Context, ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	if err := l.acquire(ctx, lockKey, token, ttl); err != nil {
		return nil, nil, err
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.renew(held, stop, cancel, lockKey, token, ttl)
	}()

	var once sync.Once
	unlock := func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
		cancel(context.Canceled)
		return unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
	}
	return held, unlock, nil
}

func (l *Locker) acquire(ctx context.Context, lockKey, token string, ttl time.Duration) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) renew(ctx context.Context, stop <-chan struct{}, lost context.CancelCauseFunc, lockKey, token string, ttl time.Duration) {
	every := ttl / 3
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	renewed := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := renewScript.Run(context.WithoutCancel(ctx), l.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
		switch {
		case err == nil && n == 1:
			renewed = time.Now()
		case err == nil:
			lost(fmt.Errorf("%w: %s is held by another owner", ports.ErrLockLost, lockKey))
			return
		case time.Since(renewed) >= ttl:
			lost(fmt.Errorf("%w: %s could not be renewed: %v", ports.ErrLockLost, lockKey, err))
			return
		}
	}
}
