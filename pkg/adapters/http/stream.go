package http

import (
	"log/slog"
	"sync"

	"github.com/aretw0/concierge/internal/logging"
)

// StreamManager fans conversation diffs out to the SSE subscribers of a thread.
type StreamManager struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	subscribers map[string]map[chan string]struct{}
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a buffered channel for threadID. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(threadID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[threadID]; !ok {
		sm.subscribers[threadID] = make(map[chan string]struct{})
	}
	sm.subscribers[threadID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[threadID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, threadID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers counts the listeners of threadID.
func (sm *StreamManager) Subscribers(threadID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[threadID])
}

// Broadcast sends msg to every subscriber of threadID. Slow clients drop messages.
func (sm *StreamManager) Broadcast(threadID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[threadID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message", "thread_id", threadID)
		}
	}
}
