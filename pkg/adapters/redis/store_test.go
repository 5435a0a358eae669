package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/concierge/pkg/adapters/redis"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunCheckpointStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	threadID := "thread-ttl"
	conv := domain.NewConversation(threadID, "patient-1", time.Now())

	require.NoError(t, store.Save(ctx, threadID, conv))

	threads, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, threads, threadID)

	// Key expiration happens in miniredis time.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, threadID)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	// Index pruning is scored against wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	threads, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, threads)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	threadID := "my-thread"

	err := store.Save(ctx, threadID, domain.NewConversation(threadID, "", time.Now()))
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-thread"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, threadID)
}
