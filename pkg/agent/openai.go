package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/bradyops/brady/pkg/remote"
	"github.com/bradyops/brady/pkg/tools"
)

// abandonedToolCallMessage answers tool calls that were never executed, so
// the history stays acceptable to the API.
const abandonedToolCallMessage = `{"error":"tool call was not executed"}`

// OpenAIModel runs the agent on any OpenAI-compatible chat completions
// endpoint, keeping the conversation history client side.
type OpenAIModel struct {
	client      *openai.Client
	model       shared.ChatModel
	instruction string
	temperature *float64
	tools       []openai.ChatCompletionToolUnionParam
	policy      remote.Policy
}

type OpenAIOption func(*OpenAIModel)

// WithInstruction sets the system instruction sent at the start of every session.
func WithInstruction(instruction string) OpenAIOption {
	return func(m *OpenAIModel) { m.instruction = instruction }
}

// WithTemperature pins the sampling temperature.
func WithTemperature(t *float64) OpenAIOption {
	return func(m *OpenAIModel) { m.temperature = t }
}

// WithRetryPolicy sets the retry and timeout policy for completion calls.
func WithRetryPolicy(p remote.Policy) OpenAIOption {
	return func(m *OpenAIModel) { m.policy = p }
}

// NewOpenAIModel creates a model that advertises every tool in registry.
func NewOpenAIModel(client *openai.Client, model string, registry *tools.Registry, opts ...OpenAIOption) (*OpenAIModel, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}

	m := &OpenAIModel{
		client:      client,
		model:       shared.ChatModel(model),
		instruction: BradyInstruction,
		policy:      remote.DefaultPolicy(),
	}

	if registry != nil {
		for _, t := range registry.Tools() {
			def, err := toolDefinition(t)
			if err != nil {
				return nil, err
			}
			m.tools = append(m.tools, def)
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *OpenAIModel) Name() string {
	return string(m.model)
}

func (m *OpenAIModel) NewSession(ctx context.Context) (Session, error) {
	s := &openaiSession{
		model: m,
		id:    uuid.NewString(),
	}
	if m.instruction != "" {
		s.messages = append(s.messages, openai.SystemMessage(m.instruction))
	}

	zerolog.Ctx(ctx).Debug().Str("session", s.id).Str("model", m.Name()).Msg("opened session")
	return s, nil
}

// toolDefinition converts a registry tool into an OpenAI function tool.
func toolDefinition(t tools.Tool) (openai.ChatCompletionToolUnionParam, error) {
	function := shared.FunctionDefinitionParam{
		Name: t.Name(),
	}

	if t.Description() != "" {
		function.Description = openai.String(t.Description())
	}

	if schema := t.InputSchema(); schema != nil {
		raw, err := json.Marshal(schema)
		if err != nil {
			return openai.ChatCompletionToolUnionParam{}, fmt.Errorf("failed to marshal schema for tool %q: %w", t.Name(), err)
		}
		var params map[string]any
		if err := json.Unmarshal(raw, &params); err != nil {
			return openai.ChatCompletionToolUnionParam{}, fmt.Errorf("failed to decode schema for tool %q: %w", t.Name(), err)
		}
		function.Parameters = shared.FunctionParameters(params)
	}

	return openai.ChatCompletionFunctionTool(function), nil
}

type openaiSession struct {
	model *OpenAIModel
	id    string

	mu       sync.Mutex
	messages []openai.ChatCompletionMessageParamUnion
	// tool call ids the model issued that have not been answered yet
	pending []string
}

func (s *openaiSession) ID() string {
	return s.id
}

func (s *openaiSession) Send(ctx context.Context, text string) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answerPending()
	s.messages = append(s.messages, openai.UserMessage(text))
	return s.complete(ctx)
}

func (s *openaiSession) SendToolResults(ctx context.Context, results []tools.Result) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answered := make(map[string]bool, len(results))
	for _, r := range results {
		content, err := json.Marshal(r.Payload)
		if err != nil {
			content, _ = json.Marshal(tools.ErrorPayload(fmt.Sprintf("failed to encode tool result: %v", err)))
		}
		s.messages = append(s.messages, openai.ToolMessage(string(content), r.CallID))
		answered[r.CallID] = true
	}

	remaining := s.pending[:0]
	for _, id := range s.pending {
		if !answered[id] {
			remaining = append(remaining, id)
		}
	}
	s.pending = remaining
	s.answerPending()

	return s.complete(ctx)
}

func (s *openaiSession) answerPending() {
	for _, id := range s.pending {
		s.messages = append(s.messages, openai.ToolMessage(abandonedToolCallMessage, id))
	}
	s.pending = nil
}

func (s *openaiSession) complete(ctx context.Context) (*Reply, error) {
	m := s.model
	params := openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: s.messages,
	}
	if len(m.tools) > 0 {
		params.Tools = m.tools
	}
	if m.temperature != nil {
		params.Temperature = openai.Float(*m.temperature)
	}

	completion, err := remote.Do(ctx, "agent chat completion", m.policy, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return m.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, &remote.Error{Op: "agent chat completion", Err: errors.New("no completion choices returned")}
	}

	message := completion.Choices[0].Message
	s.messages = append(s.messages, message.ToParam())

	reply := &Reply{Text: message.Content}
	// every call is forwarded, even one without a name, so the history keeps
	// a tool message per tool_call_id; the registry answers unknown names
	// with an error payload.
	for _, tc := range message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, tools.Call{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
		s.pending = append(s.pending, tc.ID)
	}

	zerolog.Ctx(ctx).Debug().
		Str("session", s.id).
		Int("toolCalls", len(reply.ToolCalls)).
		Str("finishReason", string(completion.Choices[0].FinishReason)).
		Msg("agent replied")

	return reply, nil
}
