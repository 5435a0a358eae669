package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore implementation
// adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(threadID, "patient-1", now)
		conv.UserContext["name"] = "Ada"
		conv.Append(
			domain.Message{ID: "m1", Role: domain.RoleUser, Content: "book me with Dr. Smith", CreatedAt: now},
			domain.Message{ID: "m2", Role: domain.RoleAssistant, Agent: domain.Router, CreatedAt: now,
				ToolCalls: []domain.ToolCall{{ID: "c1", Name: "to_appointment_assistant", Args: map[string]any{"request": "book"}}}},
			domain.Message{ID: "m3", Role: domain.RoleTool, ToolCallID: "c1", Content: "framing", CreatedAt: now},
		)
		conv.DialogStack = domain.DialogStack{domain.Appointment}
		conv.Status = domain.StatusPendingConfirmation
		conv.Next = domain.SensitiveToolsNode(domain.Appointment)
		conv.Pending = &domain.PendingConfirmation{ID: "p1", Agent: domain.Appointment, RequestedAt: now,
			Calls: []domain.ToolCall{{ID: "c2", Name: "book_appointment"}}}
		conv.Version = 3

		require.NoError(t, store.Save(ctx, threadID, conv), "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conv.Next, loaded.Next)
		assert.Equal(t, conv.Status, loaded.Status)
		assert.Equal(t, conv.DialogStack, loaded.DialogStack)
		assert.Equal(t, 3, loaded.Version)
		assert.Equal(t, "Ada", loaded.UserContext["name"])
		require.NotNil(t, loaded.Pending)
		assert.Equal(t, "p1", loaded.Pending.ID)

		require.Len(t, loaded.Messages, 3)
		for i, m := range loaded.Messages {
			assert.Equal(t, conv.Messages[i].ID, m.ID, "messages must come back in order")
		}
		assert.Equal(t, "c1", loaded.Messages[2].ToolCallID)
	})

	t.Run("Load returns an independent copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		loaded.Append(domain.Message{ID: "local"})

		again, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Len(t, again.Messages, 3)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, threadID, domain.NewConversation(threadID, "", now)))

		require.NoError(t, store.Delete(ctx, threadID), "Delete should not return error")

		_, err := store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1, "", now))
		_ = store.Save(ctx, id2, domain.NewConversation(id2, "", now))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}
