// Package testutils holds test doubles shared across packages.
package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// ErrScriptExhausted is returned when the model is called more often than scripted.
var ErrScriptExhausted = errors.New("scripted model: no replies left")

// Reply is one scripted model output.
type Reply struct {
	Text  string
	Calls []domain.ToolCall
	Err   error
}

// Say scripts a plain text answer.
func Say(text string) Reply { return Reply{Text: text} }

// Call scripts a single tool call.
func Call(id, name string, args map[string]any) Reply {
	return Reply{Calls: []domain.ToolCall{{ID: id, Name: name, Args: args}}}
}

// Batch scripts several tool calls in one output.
func Batch(calls ...domain.ToolCall) Reply { return Reply{Calls: calls} }

// Empty scripts a degenerate output.
func Empty() Reply { return Reply{} }

// Fail scripts a provider failure.
func Fail(err error) Reply { return Reply{Err: err} }

// ScriptedModel is a ports.Model that replays queued replies and records the requests it saw.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []Reply
	requests []ports.ModelRequest
}

// NewScriptedModel creates a model with an initial script.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Push appends replies to the script.
func (m *ScriptedModel) Push(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Generate implements ports.Model.
func (m *ScriptedModel) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = append([]domain.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)

	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &ports.ModelResponse{Text: r.Text, ToolCalls: r.Calls}, nil
}

// Requests returns every request received so far.
func (m *ScriptedModel) Requests() []ports.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.ModelRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *ScriptedModel) LastRequest() ports.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ports.ModelRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// Remaining reports how many scripted replies are unused.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}
