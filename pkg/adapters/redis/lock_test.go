package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource1", 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be set in Redis")

	assert.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:lock:")
	locker2 := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()
	key := "shared-resource"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(500*time.Millisecond), time.Now(), 150*time.Millisecond, "Should block until timeout")

	assert.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:lock:shared-resource"))
}

func TestRedisLocker_ForeignUnlockIsNoop(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "expiring", 1*time.Second)
	assert.NoError(t, err)

	// The lock expires and another holder takes it.
	mr.FastForward(2 * time.Second)
	other, err := locker.Lock(ctx, "expiring", 5*time.Second)
	assert.NoError(t, err)

	assert.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:lock:expiring"), "a stale unlock must not release the new holder's lock")
	assert.NoError(t, other(ctx))
}

func TestRedisLocker_RenewsWhileHeld(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	held, unlock, err := locker.Hold(ctx, "long-turn", 300*time.Millisecond)
	require.NoError(t, err)

	// Five times the TTL passes on the server; renewals keep the key alive.
	for i := 0; i < 5; i++ {
		time.Sleep(150 * time.Millisecond)
		mr.FastForward(200 * time.Millisecond)
		require.True(t, mr.Exists("test:lock:lock:long-turn"), "round %d", i)
	}
	assert.NoError(t, held.Err())

	other, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(other, "long-turn", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a renewed lock is not handed to another replica")

	assert.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:lock:long-turn"))
	assert.ErrorIs(t, held.Err(), context.Canceled)
}

func TestRedisLocker_LostLeaseCancelsHolder(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()

	held, unlock, err := locker.Hold(ctx, "stalled", 300*time.Millisecond)
	require.NoError(t, err)

	// The holder stalls past the TTL and another replica takes the key.
	mr.FastForward(time.Second)
	next, err := locker.Lock(ctx, "stalled", 5*time.Second)
	require.NoError(t, err)

	select {
	case <-held.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("the stalled holder was not told it lost the lock")
	}
	assert.ErrorIs(t, context.Cause(held), ports.ErrLockLost)

	assert.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:lock:stalled"), "the new holder keeps its lock")
	assert.NoError(t, next(ctx))
}
