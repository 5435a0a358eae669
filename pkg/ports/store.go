package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// CheckpointStore defines the interface for persisting conversations.
// The engine saves after every step, so a thread can be resumed identically after a restart.
type CheckpointStore interface {
	// Save persists the conversation for a given thread ID, replacing any previous checkpoint.
	Save(ctx context.Context, threadID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given thread ID.
	// Returns domain.ErrThreadNotFound if the thread does not exist.
	Load(ctx context.Context, threadID string) (*domain.Conversation, error)

	// Delete removes the checkpoint for a given thread ID.
	Delete(ctx context.Context, threadID string) error

	// List returns the IDs of all checkpointed threads.
	List(ctx context.Context) ([]string, error)
}

// UserContextProvider loads the profile snapshot of the user a thread acts for.
type UserContextProvider interface {
	FetchUserContext(ctx context.Context, userContextID string) (map[string]any, error)
}
