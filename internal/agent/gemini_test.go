package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/desertthunder/ytcurator/internal/shared"
)

type fakeChat struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	sent      [][]genai.Part
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := len(f.sent)
	f.sent = append(f.sent, parts)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return geminiResponse(genai.Text("ok")), nil
}

func geminiResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func newFakeGemini(chat *fakeChat) *GeminiProvider {
	return &GeminiProvider{
		chat:    chat,
		newChat: func() chatSession { return &fakeChat{} },
	}
}

func TestGeminiProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("function call round trip", func(t *testing.T) {
		chat := &fakeChat{responses: []*genai.GenerateContentResponse{
			geminiResponse(genai.FunctionCall{Name: "get_artist_songs", Args: map[string]any{"artist_name": "Daft Punk"}}),
			geminiResponse(genai.Text("Here "), genai.Text("you go.")),
		}}
		p := newFakeGemini(chat)

		turn, err := p.SendText(ctx, "daft punk please")
		if err != nil {
			t.Fatalf("SendText() error = %v", err)
		}
		if len(turn.Calls) != 1 || turn.Calls[0].Name != "get_artist_songs" || turn.Calls[0].Args["artist_name"] != "Daft Punk" {
			t.Fatalf("unexpected turn %+v", turn)
		}

		turn, err = p.SendResults(ctx, []ToolResult{{Call: turn.Calls[0], Output: "Top songs by Daft Punk"}})
		if err != nil {
			t.Fatalf("SendResults() error = %v", err)
		}
		if turn.Text != "Here you go." {
			t.Errorf("unexpected text %q", turn.Text)
		}

		resp, ok := chat.sent[1][0].(genai.FunctionResponse)
		if !ok || resp.Name != "get_artist_songs" || resp.Response["result"] != "Top songs by Daft Punk" {
			t.Errorf("unexpected function response %+v", chat.sent[1][0])
		}
	})

	t.Run("appended results precede the next text", func(t *testing.T) {
		chat := &fakeChat{}
		p := newFakeGemini(chat)
		p.AppendResults([]ToolResult{{Call: ToolCall{Name: "review_cart"}, Output: "Error: limit"}})

		if _, err := p.SendText(ctx, "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		parts := chat.sent[0]
		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}
		if _, ok := parts[0].(genai.FunctionResponse); !ok {
			t.Errorf("expected function response first, got %T", parts[0])
		}
		if parts[1] != genai.Text("hello") {
			t.Errorf("expected text last, got %v", parts[1])
		}
		if len(p.pending) != 0 {
			t.Error("pending should be cleared")
		}
	})

	t.Run("errors keep pending results and are classified", func(t *testing.T) {
		chat := &fakeChat{errs: []error{&googleapi.Error{Code: 429, Message: "quota"}}}
		p := newFakeGemini(chat)
		p.AppendResults([]ToolResult{{Call: ToolCall{Name: "review_cart"}, Output: "x"}})

		_, err := p.SendText(ctx, "hello")
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected quota error, got %v", err)
		}
		if len(p.pending) != 1 {
			t.Error("pending results should survive a failed send")
		}
	})

	t.Run("empty response", func(t *testing.T) {
		chat := &fakeChat{responses: []*genai.GenerateContentResponse{{}}}
		turn, err := newFakeGemini(chat).SendText(ctx, "hi")
		if err != nil || turn.Text != "" || len(turn.Calls) != 0 {
			t.Errorf("unexpected turn %+v, %v", turn, err)
		}
	})

	t.Run("Reset starts a new chat", func(t *testing.T) {
		chat := &fakeChat{}
		p := newFakeGemini(chat)
		p.AppendResults([]ToolResult{{Call: ToolCall{Name: "review_cart"}, Output: "x"}})
		p.Reset()

		if p.chat == chatSession(chat) {
			t.Error("expected a fresh chat session")
		}
		if len(p.pending) != 0 {
			t.Error("Reset should drop pending results")
		}
		if err := p.Close(); err != nil {
			t.Errorf("Close() without client = %v", err)
		}
	})
}

func TestGeminiDeclarations(t *testing.T) {
	decls := geminiDeclarations(testTools)
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if decls[0].Parameters != nil {
		t.Error("tool without params should have no schema")
	}
	if decls[1].Parameters.Required[0] != "song_query" {
		t.Errorf("unexpected schema %+v", decls[1].Parameters)
	}
}
