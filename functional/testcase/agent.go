package testcase

import (
	"github.com/bradyops/brady/functional/servers/openai"
	"github.com/bradyops/brady/pkg/agent"
)

// AgentBuilder provides a fluent API for scripting the mock agent model.
// Behaviors are keyed on the most recent user message, so each turn of a
// conversation can be scripted independently.
type AgentBuilder struct {
	model        string
	expectations []*openai.Expectation
}

// NewAgentBuilder creates a new agent builder
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{model: agent.BradyModel}
}

// OnTurnContaining adds a behavior for turns whose user message contains
// substring. Returns a BehaviorBuilder to configure the behavior's actions.
func (b *AgentBuilder) OnTurnContaining(substring string) *BehaviorBuilder {
	return &BehaviorBuilder{agentBuilder: b, matcher: openai.LastUserMessageContains(substring)}
}

// OnAnyTurn adds a catch-all behavior.
func (b *AgentBuilder) OnAnyTurn() *BehaviorBuilder {
	return &BehaviorBuilder{agentBuilder: b, matcher: openai.AnyRequest()}
}

func (b *AgentBuilder) add(name string, matcher openai.RequestMatcher, responses ...*openai.Response) {
	b.expectations = append(b.expectations, &openai.Expectation{
		Name:      name,
		Matcher:   openai.And(openai.ModelIs(b.model), matcher),
		Responses: responses,
	})
}

// register installs the behaviors on the mock server
func (b *AgentBuilder) register(server *openai.MockOpenAIServer) {
	for _, e := range b.expectations {
		server.Expect(e)
	}
}

// BehaviorBuilder provides a fluent API for building a single behavior.
// Call ThenRespond() or ThenFail() to finalize and return to the AgentBuilder.
type BehaviorBuilder struct {
	agentBuilder *AgentBuilder
	matcher      openai.RequestMatcher
	name         string
	toolCalls    []openai.ToolCallSpec
}

// WithName sets an optional name for this behavior (useful for debugging)
func (bb *BehaviorBuilder) WithName(name string) *BehaviorBuilder {
	bb.name = name
	return bb
}

// CallTool makes the agent request a tool before answering. Calls added
// together are issued in one reply.
func (bb *BehaviorBuilder) CallTool(name string, args map[string]any) *BehaviorBuilder {
	bb.toolCalls = append(bb.toolCalls, openai.Call(name, args))
	return bb
}

// ThenRespond sets the final answer and finalizes this behavior.
// Returns the AgentBuilder to continue configuration.
func (bb *BehaviorBuilder) ThenRespond(response string) *AgentBuilder {
	b := bb.agentBuilder
	if len(bb.toolCalls) == 0 {
		b.add(bb.name, bb.matcher, openai.TextResponse(response))
		return b
	}

	// the follow-up request ends with the tool results
	b.add(bb.name, openai.And(bb.matcher, openai.LastMessageRole("tool")), openai.TextResponse(response))
	b.add(bb.name, openai.And(bb.matcher, openai.LastMessageRole("user")), openai.ToolCallResponse(bb.toolCalls...))
	return b
}

// ThenFail makes the model API return an error for matching turns.
func (bb *BehaviorBuilder) ThenFail(statusCode int, message string) *AgentBuilder {
	bb.agentBuilder.add(bb.name, bb.matcher, openai.ErrorResponse(statusCode, message))
	return bb.agentBuilder
}
