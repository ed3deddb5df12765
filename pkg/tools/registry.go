package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// ErrToolNotFound is returned when a call names a tool the registry does not hold.
var ErrToolNotFound = errors.New("tool not found")

// Registry maps tool names to tools. It is immutable once built and safe
// for concurrent use.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from the given tools. Names must be unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make(map[string]Tool, len(tools)),
		order: make([]string, 0, len(tools)),
	}

	var err error
	for _, t := range tools {
		if t == nil {
			continue
		}
		if _, ok := r.tools[t.Name()]; ok {
			err = errors.Join(err, fmt.Errorf("duplicate tool name %q", t.Name()))
			continue
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}

	if err != nil {
		return nil, err
	}

	return r, nil
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Invoke runs a call and always produces a Result. Unknown tools and tool
// failures, including panics, become error payloads instead of errors.
func (r *Registry) Invoke(ctx context.Context, call Call) (res Result) {
	logger := zerolog.Ctx(ctx).With().Str("tool", call.Name).Str("callId", call.ID).Logger()

	res = Result{CallID: call.ID, Name: call.Name}

	t, err := r.Lookup(call.Name)
	if err != nil {
		logger.Warn().Err(err).Msg("model requested an unknown tool")
		res.Payload = ErrorPayload(err.Error())
		res.IsError = true
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			execErr := &ExecutionError{Tool: call.Name, Err: fmt.Errorf("panic: %v", p)}
			logger.Error().Err(execErr).Msg("tool panicked")
			res.Payload = ErrorPayload("Tool Error: " + execErr.Err.Error())
			res.IsError = true
		}
	}()

	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		execErr := &ExecutionError{Tool: call.Name, Err: err}
		logger.Warn().Err(execErr).Msg("tool returned an error")
		res.Payload = ErrorPayload("Tool Error: " + err.Error())
		res.IsError = true
		return res
	}

	logger.Debug().Msg("tool call completed")
	res.Payload = map[string]any{"result": out}
	return res
}

// ErrorPayload builds the payload shape used for every tool-level failure.
func ErrorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}
