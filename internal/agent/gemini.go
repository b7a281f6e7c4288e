package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

// chatSession is the part of [genai.ChatSession] the adapter uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiChat trims the user turn genai appends to the history when a send fails.
type geminiChat struct {
	cs *genai.ChatSession
}

func (g *geminiChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	n := len(g.cs.History)
	resp, err := g.cs.SendMessage(ctx, parts...)
	if err != nil && len(g.cs.History) > n {
		g.cs.History = g.cs.History[:n]
	}
	return resp, err
}

// GeminiProvider drives a Gemini chat session, which keeps its own history.
//
// Gemini function calls carry no identifier, so calls are correlated by name.
type GeminiProvider struct {
	client  *genai.Client
	newChat func() chatSession
	chat    chatSession
	// pending holds function responses recorded by AppendResults, sent ahead of the next user text.
	pending []genai.Part
}

// NewGeminiProvider creates a Gemini adapter advertising ts.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig, ts []tools.Tool) (*GeminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", shared.ErrUpstream, err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.systemPrompt())}}
	model.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(ts)}}

	p := &GeminiProvider{
		client:  client,
		newChat: func() chatSession { return &geminiChat{cs: model.StartChat()} },
	}
	p.chat = p.newChat()
	return p, nil
}

func geminiDeclarations(ts []tools.Tool) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(ts))
	for i, t := range ts {
		decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
		if len(t.Params) > 0 {
			schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(t.Params))}
			for _, param := range t.Params {
				schema.Properties[param.Name] = &genai.Schema{Type: genai.TypeString, Description: param.Description}
				if param.Required {
					schema.Required = append(schema.Required, param.Name)
				}
			}
			decl.Parameters = schema
		}
		out[i] = decl
	}
	return out
}

func (p *GeminiProvider) Name() string { return shared.ProviderGemini }

func (p *GeminiProvider) SendText(ctx context.Context, text string) (Turn, error) {
	parts := append(append([]genai.Part(nil), p.pending...), genai.Text(text))
	return p.send(ctx, parts)
}

func (p *GeminiProvider) SendResults(ctx context.Context, results []ToolResult) (Turn, error) {
	parts := append(append([]genai.Part(nil), p.pending...), geminiResults(results)...)
	return p.send(ctx, parts)
}

func (p *GeminiProvider) AppendResults(results []ToolResult) {
	p.pending = append(p.pending, geminiResults(results)...)
}

func (p *GeminiProvider) Reset() {
	p.pending = nil
	p.chat = p.newChat()
}

// Close releases the gemini client.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func geminiResults(results []ToolResult) []genai.Part {
	parts := make([]genai.Part, len(results))
	for i, r := range results {
		parts[i] = genai.FunctionResponse{Name: r.Call.Name, Response: map[string]any{"result": r.Output}}
	}
	return parts
}

func (p *GeminiProvider) send(ctx context.Context, parts []genai.Part) (Turn, error) {
	resp, err := p.chat.SendMessage(ctx, parts...)
	if err != nil {
		return Turn{}, classify(p.Name(), geminiStatus(err), err)
	}
	p.pending = nil

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Turn{}, nil
	}

	var turn Turn
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			turn.Text += string(v)
		case genai.FunctionCall:
			turn.Calls = append(turn.Calls, ToolCall{ID: v.Name, Name: v.Name, Args: v.Args})
		case *genai.FunctionCall:
			turn.Calls = append(turn.Calls, ToolCall{ID: v.Name, Name: v.Name, Args: v.Args})
		}
	}
	return turn, nil
}

func geminiStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
