package runtime

import (
	"fmt"

	"github.com/aretw0/concierge/pkg/domain"
)

// TurnError is a fatal failure of a turn. The conversation keeps every step
// completed before Node failed.
type TurnError struct {
	ThreadID string
	Node     domain.Node
	Err      error
}

func (e *TurnError) Error() string {
	node := e.Node.String()
	if node == "" {
		node = "await_user"
	}
	return fmt.Sprintf("thread %s: node %s: %v", e.ThreadID, node, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }
