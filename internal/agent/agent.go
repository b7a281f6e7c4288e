// package agent runs the conversation loop between a user, an LLM provider and the tool registry
package agent

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

const (
	DefaultMaxRounds = 8
	DefaultTimeout   = 60 * time.Second
)

// ToolCall is one action requested by the provider.
//
// ID correlates the call with its result; providers without call identifiers use the tool name.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the output of executing a [ToolCall].
type ToolResult struct {
	Call   ToolCall
	Output string
}

// Turn is one provider response: final text, or actions to execute.
type Turn struct {
	Text  string
	Calls []ToolCall
}

// Provider is a stateful conversation with one LLM.
//
// Implementations keep provider-native history, including tool declarations and formatting.
// A failed call must leave the history as it was before the call.
type Provider interface {
	// Name identifies the provider, e.g. "gemini".
	Name() string
	// SendText sends a user message and returns the model's next turn.
	SendText(ctx context.Context, text string) (Turn, error)
	// SendResults returns action results for the previous turn's calls and returns the model's next turn.
	SendResults(ctx context.Context, results []ToolResult) (Turn, error)
	// AppendResults records results for the previous turn's calls without asking the model for a reply.
	// They are delivered with the next message.
	AppendResults(results []ToolResult)
	// Reset discards the conversation history.
	Reset()
}

// Option configures an [Agent].
type Option func(*Agent)

// WithMaxRounds bounds the number of tool-call rounds per user message.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// Agent drives one conversation: user text in, assistant text out, with tool calls executed in between.
//
// An Agent is not safe for concurrent use.
type Agent struct {
	provider  Provider
	registry  *tools.Registry
	maxRounds int
	timeout   time.Duration
	logger    *log.Logger
}

// New creates an agent that executes p's tool calls through r.
func New(p Provider, r *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		provider:  p,
		registry:  r,
		maxRounds: DefaultMaxRounds,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = shared.NewLogger(io.Discard)
	}
	return a
}

// Provider returns the underlying provider.
func (a *Agent) Provider() Provider {
	return a.provider
}

// Send delivers text to the provider and executes requested actions until the provider answers with text.
//
// Exceeding the round limit returns an error wrapping [shared.ErrMaxRounds]; the unanswered calls are
// recorded with an error result so the conversation can continue. When returning results fails, the
// executed results are still recorded and delivered with the next message.
func (a *Agent) Send(ctx context.Context, text string) (string, error) {
	turn, err := a.call(ctx, func(ctx context.Context) (Turn, error) {
		return a.provider.SendText(ctx, text)
	})
	if err != nil {
		return "", err
	}

	for round := 1; len(turn.Calls) > 0; round++ {
		if round > a.maxRounds {
			a.logger.Warn("tool-call round limit reached", "provider", a.provider.Name(), "rounds", a.maxRounds)
			a.provider.AppendResults(abandoned(turn.Calls, a.maxRounds))
			return "", fmt.Errorf("%w: stopped after %d rounds", shared.ErrMaxRounds, a.maxRounds)
		}

		results := a.execute(ctx, turn.Calls)
		turn, err = a.call(ctx, func(ctx context.Context) (Turn, error) {
			return a.provider.SendResults(ctx, results)
		})
		if err != nil {
			a.provider.AppendResults(results)
			return "", err
		}
	}

	return turn.Text, nil
}

// Reset starts a fresh conversation with the same provider and tools.
func (a *Agent) Reset() {
	a.provider.Reset()
}

// Close releases provider resources when the provider holds any.
func (a *Agent) Close() error {
	if c, ok := a.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Agent) call(ctx context.Context, fn func(context.Context) (Turn, error)) (Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	turn, err := fn(ctx)
	if err != nil {
		a.logger.Error("provider call failed", "provider", a.provider.Name(), "error", err)
		return Turn{}, err
	}
	return turn, nil
}

// execute runs every call of one round; a failing call does not stop the others.
func (a *Agent) execute(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	for i, c := range calls {
		results[i] = ToolResult{Call: c, Output: a.registry.Dispatch(ctx, c.Name, c.Args)}
	}
	return results
}

func abandoned(calls []ToolCall, limit int) []ToolResult {
	results := make([]ToolResult, len(calls))
	for i, c := range calls {
		results[i] = ToolResult{
			Call:   c,
			Output: fmt.Sprintf("Error: %v: not executed after %d rounds", shared.ErrMaxRounds, limit),
		}
	}
	return results
}
