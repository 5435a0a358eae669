// Package llm adapts hosted language models to ports.Model.
//
// Provider failures are wrapped with domain.ErrExternalService; the engine
// treats them as fatal to the turn.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultMaxTokens caps a reply when the request does not.
const DefaultMaxTokens = 1024

type config struct {
	baseURL    string
	maxTokens  int
	maxRetries int
}

// Option configures a provider.
type Option func(*config)

// WithBaseURL targets another endpoint (a proxy, a compatible server, a test double).
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithMaxTokens sets the default reply cap.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithMaxRetries sets how often the SDK retries transient failures.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

func newConfig(opts []Option) config {
	c := config{maxTokens: DefaultMaxTokens, maxRetries: -1}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// New builds the model named by provider.
func New(provider, apiKey, model string, opts ...Option) (ports.Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: api key for %s is required", provider)
	}
	if model == "" {
		return nil, errors.New("llm: model name is required")
	}
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model, opts...), nil
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model, opts...), nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", provider)
}

func providerError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrExternalService, provider, err)
}

func requiredFields(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
