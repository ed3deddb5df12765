// Package tools holds the tools the logistics agent may call and the registry
// that resolves a model-issued tool call to one of them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a named operation the agent can invoke.
type Tool interface {
	Name() string
	Description() string
	InputSchema() *jsonschema.Schema
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// Call is a tool invocation requested by the model.
type Call struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Result is the payload returned to the model for a single Call.
type Result struct {
	CallID  string `json:"callId,omitempty"`
	Name    string `json:"name"`
	Payload any    `json:"payload"`
	IsError bool   `json:"isError,omitempty"`
}

// ExecutionError wraps a failure raised while running a tool.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type typedTool[In any] struct {
	name        string
	description string
	schema      *jsonschema.Schema
	fn          func(ctx context.Context, in In) (any, error)
}

// New builds a Tool whose input schema is inferred from In.
func New[In any](name, description string, fn func(ctx context.Context, in In) (any, error)) (Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer input schema for tool %q: %w", name, err)
	}

	return &typedTool[In]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}, nil
}

// MustNew is like New but panics on schema inference failure.
func MustNew[In any](name, description string, fn func(ctx context.Context, in In) (any, error)) Tool {
	t, err := New(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *typedTool[In]) Name() string                    { return t.name }
func (t *typedTool[In]) Description() string             { return t.description }
func (t *typedTool[In]) InputSchema() *jsonschema.Schema { return t.schema }

func (t *typedTool[In]) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var in In
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	return t.fn(ctx, in)
}
