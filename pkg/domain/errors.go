package domain

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound is returned when a thread ID cannot be found in the store.
var ErrThreadNotFound = errors.New("thread not found")

// Failure taxonomy. Tool failures wrap one of these in a *ToolError.
var (
	ErrToolNotFound       = errors.New("tool not found")
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrExternalService    = errors.New("external service error")
	ErrValidationFailure  = errors.New("validation failure")
	ErrNoResponse         = errors.New("no response from model")
	ErrUnauthorizedAccess = errors.New("unauthorized access")
)

// Gate and routing errors.
var (
	ErrNoPendingConfirmation = errors.New("no pending confirmation")
	ErrStaleConfirmation     = errors.New("confirmation does not match the pending action")
	ErrStackViolation        = errors.New("dialog stack violation")
	ErrStepLimit             = errors.New("step limit exceeded")
	ErrInvalidInput          = errors.New("invalid input")
)

// ToolError is a typed tool failure. Kind is one of the taxonomy sentinels.
type ToolError struct {
	Kind    error
	Tool    string
	Message string
}

// NewToolError builds a ToolError with a formatted message.
func NewToolError(kind error, tool, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Message: fmt.Sprintf(format, args...)}
}

func (e *ToolError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Kind }

// Validation is shorthand for a business-rule rejection.
func Validation(format string, args ...any) error {
	return &ToolError{Kind: ErrValidationFailure, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized is shorthand for an ownership failure.
func Unauthorized(format string, args ...any) error {
	return &ToolError{Kind: ErrUnauthorizedAccess, Message: fmt.Sprintf(format, args...)}
}

// External wraps a collaborator failure.
func External(service string, err error) error {
	return &ToolError{Kind: ErrExternalService, Message: fmt.Sprintf("%s: %v", service, err)}
}

// UserMessage extracts the human-readable part of an error for tool results.
func UserMessage(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
