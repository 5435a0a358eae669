package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.CheckpointStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, at rest, the user-context
// values and tool-call arguments whose keys match one of the patterns.
//
// Masking is one-way: a redacted thread loads with "***" in place of the
// values, which the model then sees in the router prompt.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, threadID string, conv *domain.Conversation) error {
	// Clone so the conversation the engine keeps using is untouched.
	cloned := conv.Clone()

	maskMap(cloned.UserContext, m.patterns)
	for i := range cloned.Messages {
		for j := range cloned.Messages[i].ToolCalls {
			maskMap(cloned.Messages[i].ToolCalls[j].Args, m.patterns)
		}
	}
	if cloned.Pending != nil {
		for i := range cloned.Pending.Calls {
			maskMap(cloned.Pending.Calls[i].Args, m.patterns)
		}
	}

	return m.next.Save(ctx, threadID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, threadID string) (*domain.Conversation, error) {
	return m.next.Load(ctx, threadID)
}

func (m *piiMiddleware) Delete(ctx context.Context, threadID string) error {
	return m.next.Delete(ctx, threadID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		switch val := v.(type) {
		case map[string]any:
			maskMap(val, patterns)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					maskMap(sub, patterns)
				}
			}
		}
	}
}
