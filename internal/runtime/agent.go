package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/specialist"
)

// promptTimeLayout renders "Current time" in agent prompts.
const promptTimeLayout = "2006-01-02 15:04:05 (Monday)"

// invoke runs the agent node: it renders the prompt, passes the full history
// and re-prompts on degenerate output up to maxAttempts times.
func (e *Engine) invoke(ctx context.Context, conv *domain.Conversation, id domain.AgentID) (domain.Message, error) {
	system, err := e.roster.Prompt(id, specialist.PromptData{
		Now:      e.now().Format(promptTimeLayout),
		UserInfo: renderUserInfo(conv.UserContext),
	})
	if err != nil {
		return domain.Message{}, err
	}

	req := ports.ModelRequest{
		System:      system,
		Messages:    conv.Messages,
		Tools:       e.roster.Tools(id),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		resp, err := e.model.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrExternalService) {
				return domain.Message{}, err
			}
			return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}

		if len(resp.ToolCalls) > 0 || strings.TrimSpace(resp.Text) != "" {
			return e.assistantMessage(id, resp), nil
		}

		e.logger.Warn("degenerate model output", "thread_id", conv.ThreadID, "agent", id, "attempt", attempt)
		// The instruction only lives in this request; it never reaches the log.
		req.Messages = append(append([]domain.Message(nil), req.Messages...), domain.Message{
			Role:    domain.RoleUser,
			Content: specialist.RetryInstruction,
		})
	}
	return domain.Message{}, fmt.Errorf("%w: %s returned empty output %d times", domain.ErrNoResponse, id, e.maxAttempts)
}

func (e *Engine) assistantMessage(id domain.AgentID, resp *ports.ModelResponse) domain.Message {
	calls := make([]domain.ToolCall, len(resp.ToolCalls))
	for i, c := range resp.ToolCalls {
		if c.ID == "" {
			c.ID = "call_" + e.newID()
		}
		if c.Args == nil {
			c.Args = map[string]any{}
		}
		calls[i] = c
	}
	if len(calls) == 0 {
		calls = nil
	}
	return domain.Message{
		ID:        e.newID(),
		Role:      domain.RoleAssistant,
		Agent:     id,
		Content:   resp.Text,
		ToolCalls: calls,
		CreatedAt: e.now(),
	}
}

func renderUserInfo(info map[string]any) string {
	if len(info) == 0 {
		return "No patient information available."
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Sprint(info)
	}
	return string(data)
}
