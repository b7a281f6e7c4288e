package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

// OpenAIProvider keeps a message array for the OpenAI chat completions API.
//
// Tool results are appended as tool messages correlated by call id.
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	system   string
	tools    []openai.Tool
	messages []openai.ChatCompletionMessage
}

// NewOpenAIProvider creates an OpenAI adapter advertising ts.
func NewOpenAIProvider(cfg ProviderConfig, ts []tools.Tool) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		system: cfg.systemPrompt(),
		tools:  openAITools(ts),
	}
}

func openAITools(ts []tools.Tool) []openai.Tool {
	out := make([]openai.Tool, len(ts))
	for i, t := range ts {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema(),
			},
		}
	}
	return out
}

func (p *OpenAIProvider) Name() string { return shared.ProviderOpenAI }

func (p *OpenAIProvider) SendText(ctx context.Context, text string) (Turn, error) {
	return p.complete(ctx, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
}

func (p *OpenAIProvider) SendResults(ctx context.Context, results []ToolResult) (Turn, error) {
	return p.complete(ctx, openAIResults(results)...)
}

func (p *OpenAIProvider) AppendResults(results []ToolResult) {
	p.messages = append(p.messages, openAIResults(results)...)
}

func (p *OpenAIProvider) Reset() {
	p.messages = nil
}

func openAIResults(results []ToolResult) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, len(results))
	for i, r := range results {
		msgs[i] = openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    r.Output,
			Name:       r.Call.Name,
			ToolCallID: r.Call.ID,
		}
	}
	return msgs
}

// complete sends history plus next and commits both, with the reply, only on success.
func (p *OpenAIProvider) complete(ctx context.Context, next ...openai.ChatCompletionMessage) (Turn, error) {
	pending := make([]openai.ChatCompletionMessage, 0, len(p.messages)+len(next)+1)
	pending = append(pending, p.messages...)
	pending = append(pending, next...)

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: append([]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: p.system}}, pending...),
		Tools:    p.tools,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Turn{}, classify(p.Name(), openAIStatus(err), err)
	}
	if len(resp.Choices) == 0 {
		return Turn{}, fmt.Errorf("%w: no response from OpenAI", shared.ErrUpstream)
	}

	msg := resp.Choices[0].Message
	p.messages = append(pending, msg)

	turn := Turn{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
		}
		turn.Calls = append(turn.Calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return turn, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
