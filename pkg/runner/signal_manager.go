package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager turns Ctrl+C into context cancellation. Each interrupt
// cancels the current context; Reset arms a fresh one for the next turn.
type SignalManager struct {
	source <-chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager listens for SIGINT and SIGTERM, or for source when it is
// not nil.
func NewSignalManager(source <-chan struct{}) *SignalManager {
	sm := &SignalManager{source: source}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether the current context was cancelled by a signal.
func (sm *SignalManager) Interrupted() bool {
	return sm.ctx.Err() != nil
}

// Reset re-arms the listener after an interrupt was handled.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	if sm.source == nil {
		sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sm.ctx, sm.cancel = ctx, cancel
	go func(src <-chan struct{}) {
		select {
		case <-src:
			cancel()
		case <-ctx.Done():
		}
	}(sm.source)
}

// Stop permanently stops the listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly for a cancellation that may trail an input error.
// Some terminals deliver EOF a moment before the interrupt itself.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() != nil {
		return
	}
	select {
	case <-sm.ctx.Done():
	case <-time.After(100 * time.Millisecond):
	}
}
