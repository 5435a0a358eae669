package registry

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// Caller identifies on whose behalf a tool runs.
type Caller struct {
	ThreadID      string
	UserContextID string
	Agent         domain.AgentID
}

type callerKey struct{}

// WithCaller attaches the caller to ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached to ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// UserContextID returns the identity of the caller or an UnauthorizedAccess
// failure for identity-scoped tools invoked without one.
func UserContextID(ctx context.Context) (string, error) {
	c, ok := CallerFrom(ctx)
	if !ok || c.UserContextID == "" {
		return "", domain.Unauthorized("No patient ID configured.")
	}
	return c.UserContextID, nil
}
