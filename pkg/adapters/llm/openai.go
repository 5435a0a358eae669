package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI implements ports.Model on the Chat Completions API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a model backed by an OpenAI-compatible endpoint.
func NewOpenAI(apiKey, model string, opts ...Option) *OpenAI {
	cfg := newConfig(opts)
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.maxRetries))
	}
	return &OpenAI{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: cfg.maxTokens,
	}
}

// Generate makes one chat completion call.
func (p *OpenAI) Generate(ctx context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	messages, err := openaiMessages(req.System, req.Messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, providerError(ctx, "openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: no response choices returned", domain.ErrExternalService)
	}

	choice := resp.Choices[0]
	out := &ports.ModelResponse{
		Text: choice.Message.Content,
		Usage: ports.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: openai: failed to parse tool arguments: %v", domain.ErrExternalService, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return out, nil
}

func openaiMessages(system string, msgs []domain.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case domain.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case domain.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCall, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}
				calls = append(calls, openai.ChatCompletionMessageToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      tc.Name,
						Arguments: string(raw),
					},
				})
			}
			msg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   m.Content,
				ToolCalls: calls,
			}
			out = append(out, msg.ToParam())
		}
	}
	return out, nil
}
