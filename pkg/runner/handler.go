package runner

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents assistant outputs. The runner passes each message once.
	Output(ctx context.Context, outputs []domain.Output) error

	// Input reads the next user line. io.EOF ends the session.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (prompts, errors) distinct from
	// assistant content.
	SystemOutput(ctx context.Context, msg string) error
}
