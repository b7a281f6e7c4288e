// package tools maps action names advertised to the model onto handlers
package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytcurator/internal/shared"
)

// Handler executes one action and returns the text fed back to the model.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Param describes one string argument of a tool.
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Tool is a named action with its parameter description and handler.
//
// Params only advertise the action to a provider; arguments are not validated before dispatch.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Schema returns the parameters as a JSON Schema object.
func (t Tool) Schema() map[string]any {
	props := make(map[string]any, len(t.Params))
	required := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		props[p.Name] = map[string]any{"type": "string", "description": p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Registry holds tools in registration order.
type Registry struct {
	order  []string
	tools  map[string]Tool
	logger *log.Logger
}

// NewRegistry creates a registry containing ts.
func NewRegistry(logger *log.Logger, ts ...Tool) *Registry {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	r := &Registry{tools: make(map[string]Tool, len(ts)), logger: logger}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns every registered tool in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Dispatch invokes the named tool and always returns a result string.
//
// Unknown tools, handler errors and handler panics are reported as "Error: ..." text so the model can correct itself.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result string) {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return errorResult(fmt.Errorf("%w %q", shared.ErrUnknownTool, name))
	}

	if args == nil {
		args = map[string]any{}
	}

	r.logger.Info("dispatching tool", "tool", name, "args", shared.Truncate(fmt.Sprint(args), 120))

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", p)
			result = errorResult(fmt.Errorf("%w: %s panicked: %v", shared.ErrDispatch, name, p))
		}
	}()

	out, err := t.Handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "error", err)
		return errorResult(err)
	}
	return out
}

func errorResult(err error) string {
	return "Error: " + err.Error()
}

// StringArg extracts a required, non-blank string argument.
func StringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: missing %q", shared.ErrInvalidArgument, name)
	}

	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", shared.ErrInvalidArgument, name, raw)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %q is empty", shared.ErrInvalidArgument, name)
	}
	return s, nil
}
