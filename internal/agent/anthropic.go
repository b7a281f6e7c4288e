package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

const anthropicMaxTokens = 1024

// AnthropicProvider keeps a message array for the Anthropic Messages API.
//
// Tool results travel as tool_result blocks in the following user message.
type AnthropicProvider struct {
	client   *anthropic.Client
	model    string
	system   string
	tools    []anthropic.ToolUnionParam
	messages []anthropic.MessageParam
	// pending holds results recorded by AppendResults, sent ahead of the next user text.
	pending []anthropic.ContentBlockParamUnion
}

// NewAnthropicProvider creates an Anthropic adapter advertising ts.
func NewAnthropicProvider(cfg ProviderConfig, ts []tools.Tool) *AnthropicProvider {
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropicopt.WithHTTPClient(cfg.HTTPClient))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicProvider{
		client: &client,
		model:  cfg.Model,
		system: cfg.systemPrompt(),
		tools:  anthropicTools(ts),
	}
}

func anthropicTools(ts []tools.Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(ts))
	for i, t := range ts {
		schema := t.Schema()
		tool := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   schema["required"].([]string),
			},
		}
		out[i] = anthropic.ToolUnionParam{OfTool: &tool}
	}
	return out
}

func (p *AnthropicProvider) Name() string { return shared.ProviderAnthropic }

func (p *AnthropicProvider) SendText(ctx context.Context, text string) (Turn, error) {
	blocks := append(append([]anthropic.ContentBlockParamUnion(nil), p.pending...), anthropic.NewTextBlock(text))
	return p.complete(ctx, blocks)
}

func (p *AnthropicProvider) SendResults(ctx context.Context, results []ToolResult) (Turn, error) {
	blocks := append(append([]anthropic.ContentBlockParamUnion(nil), p.pending...), anthropicResults(results)...)
	return p.complete(ctx, blocks)
}

func (p *AnthropicProvider) AppendResults(results []ToolResult) {
	p.pending = append(p.pending, anthropicResults(results)...)
}

func (p *AnthropicProvider) Reset() {
	p.messages = nil
	p.pending = nil
}

func anthropicResults(results []ToolResult) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, len(results))
	for i, r := range results {
		blocks[i] = anthropic.NewToolResultBlock(r.Call.ID, r.Output, strings.HasPrefix(r.Output, "Error:"))
	}
	return blocks
}

// complete sends history plus one user message built from blocks, committing only on success.
func (p *AnthropicProvider) complete(ctx context.Context, blocks []anthropic.ContentBlockParamUnion) (Turn, error) {
	pending := make([]anthropic.MessageParam, 0, len(p.messages)+2)
	pending = append(pending, p.messages...)
	pending = append(pending, anthropic.NewUserMessage(blocks...))

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: p.system}},
		Messages:  pending,
		Tools:     p.tools,
	})
	if err != nil {
		return Turn{}, classify(p.Name(), anthropicStatus(err), err)
	}

	p.messages = append(pending, msg.ToParam())
	p.pending = nil

	var (
		turn Turn
		text strings.Builder
	)
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					args = map[string]any{}
				}
			}
			turn.Calls = append(turn.Calls, ToolCall{ID: b.ID, Name: b.Name, Args: args})
		}
	}
	turn.Text = text.String()
	return turn, nil
}

func anthropicStatus(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
