package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for _, id := range []string{"b-thread", "a-thread"} {
		conv := domain.NewConversation(id, "p-1001", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
		conv.Append(domain.Message{ID: id + "-1", Role: domain.RoleUser, Content: "hello"})
		require.NoError(t, store.Save(context.Background(), id, conv))
	}
	return store
}

func TestListSessions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListSessions(context.Background(), seededStore(t), &buf))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "THREAD")
	assert.Contains(t, string(lines[1]), "a-thread")
	assert.Contains(t, string(lines[1]), "idle")
	assert.Contains(t, string(lines[2]), "b-thread")

	buf.Reset()
	require.NoError(t, ListSessions(context.Background(), memory.NewStore(), &buf))
	assert.Equal(t, "No threads found.\n", buf.String())
}

func TestInspectSession(t *testing.T) {
	store := seededStore(t)
	var buf bytes.Buffer
	require.NoError(t, InspectSession(context.Background(), store, "a-thread", nil, &buf))
	assert.Contains(t, buf.String(), `"thread_id": "a-thread"`)

	err := InspectSession(context.Background(), store, "missing", nil, &buf)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
}

func TestRemoveSessions(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	var buf bytes.Buffer

	require.NoError(t, RemoveSessions(ctx, store, []string{"a-thread", "ghost"}, false, &buf))
	assert.Contains(t, buf.String(), "Removed thread 'a-thread'")
	ids, _ := store.List(ctx)
	assert.Equal(t, []string{"b-thread"}, ids)

	require.NoError(t, RemoveSessions(ctx, store, nil, true, &buf))
	ids, _ = store.List(ctx)
	assert.Empty(t, ids)
}
