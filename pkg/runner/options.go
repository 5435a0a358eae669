package runner

import (
	"log/slog"
	"slices"
)

// DefaultQuitWords end the chat loop.
var DefaultQuitWords = []string{"q", "quit", "exit"}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures the IOHandler.
func WithHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithApprover configures how pending confirmations are answered.
// Defaults to prompting through the handler.
func WithApprover(a Approver) Option {
	return func(r *Runner) {
		r.Approver = a
	}
}

// WithQuitWords replaces the words that end the session.
func WithQuitWords(words ...string) Option {
	return func(r *Runner) {
		r.QuitWords = slices.Clone(words)
	}
}

// WithTurnObserver is called after every Chat or Resume, with its error.
func WithTurnObserver(fn func(error)) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// WithInterruptSource replaces OS signals as the interrupt source, mostly for tests.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.InterruptSource = ch
	}
}
