package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Conversation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Conversation),
	}
}

// Save persists the conversation in memory.
func (s *Store) Save(ctx context.Context, threadID string, conv *domain.Conversation) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := conv.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[threadID] = copied
	return nil
}

// Load retrieves the conversation from memory.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.data[threadID]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}

	// Copy on read so callers can't mutate the stored checkpoint by pointer
	return conv.Clone(), nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, threadID)
	return nil
}

// List returns the stored threads, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]string, 0, len(s.data))
	for id := range s.data {
		threads = append(threads, id)
	}
	sort.Strings(threads)
	return threads, nil
}
