package ports

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
)

// ModelRequest is one invocation of the language model.
type ModelRequest struct {
	System      string
	Messages    []domain.Message
	Tools       []domain.ToolSpec
	Temperature float64
	MaxTokens   int
	// JSONMode asks the provider for a single JSON object instead of free text.
	JSONMode bool
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ModelResponse is the assistant output: text and an ordered list of tool calls.
type ModelResponse struct {
	Text      string
	ToolCalls []domain.ToolCall
	Usage     Usage
}

// Model is the provider contract. Implementations wrap transport failures
// with domain.ErrExternalService.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, req ModelRequest) (*ModelResponse, error)

func (f ModelFunc) Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	return f(ctx, req)
}
