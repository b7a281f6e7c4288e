package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

// ProviderConfig holds the settings shared by every provider adapter.
type ProviderConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL    string
	HTTPClient *http.Client
}

func (c ProviderConfig) systemPrompt() string {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return DefaultSystemPrompt
	}
	return c.SystemPrompt
}

// NewProvider builds the adapter named by name advertising ts.
func NewProvider(ctx context.Context, name string, cfg ProviderConfig, ts []tools.Tool) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key for provider %s", shared.ErrMissingCredentials, name)
	}

	switch name {
	case shared.ProviderGemini:
		return NewGeminiProvider(ctx, cfg, ts)
	case shared.ProviderOpenAI:
		return NewOpenAIProvider(cfg, ts), nil
	case shared.ProviderAnthropic:
		return NewAnthropicProvider(cfg, ts), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidConfig, name)
	}
}

// classify wraps a provider SDK error with the matching sentinel errors.
//
// status is the HTTP status reported by the SDK, or zero when unknown.
func classify(provider string, status int, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w: %s: %v", shared.ErrUpstream, shared.ErrTimeout, provider, err)
	case status == http.StatusTooManyRequests || strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %w: %s: %v", shared.ErrUpstream, shared.ErrQuotaExceeded, provider, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s: %v", shared.ErrUpstream, shared.ErrInvalidCredentials, provider, err)
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrUpstream, provider, err)
	}
}

// Describe renders an error from [Agent.Send] as a line a terminal user can act on.
func Describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrQuotaExceeded):
		return "Quota Exceeded (429). Wait a moment."
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Try again."
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "The model provider rejected the API key. Check your configuration."
	case errors.Is(err, shared.ErrMaxRounds):
		return "Stopped after too many tool rounds. Try a simpler request."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
