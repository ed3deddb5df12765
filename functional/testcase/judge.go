package testcase

import (
	"github.com/bradyops/brady/functional/servers/openai"
	"github.com/bradyops/brady/pkg/agent"
)

// JudgeBuilder provides a fluent API for configuring mock judge behavior.
type JudgeBuilder struct {
	model        string
	expectations []*openai.Expectation
}

// NewJudgeBuilder creates a new judge builder
func NewJudgeBuilder() *JudgeBuilder {
	return &JudgeBuilder{model: agent.DefaultJudgeModel}
}

// WhenTranscriptContains configures the judge to respond when the grading
// prompt contains a substring.
func (b *JudgeBuilder) WhenTranscriptContains(substring string) *JudgeResponseBuilder {
	return &JudgeResponseBuilder{judge: b, matcher: openai.UserMessageContains(substring)}
}

// Always configures the judge to always respond with the configured response.
func (b *JudgeBuilder) Always() *JudgeResponseBuilder {
	return &JudgeResponseBuilder{judge: b, matcher: openai.AnyRequest()}
}

func (b *JudgeBuilder) register(server *openai.MockOpenAIServer) {
	for _, e := range b.expectations {
		server.Expect(e)
	}
}

// JudgeResponseBuilder configures what the judge should return for a matched request
type JudgeResponseBuilder struct {
	judge   *JudgeBuilder
	matcher openai.RequestMatcher
	name    string
	times   int
}

// Named sets an optional name for this expectation (useful for debugging)
func (rb *JudgeResponseBuilder) Named(name string) *JudgeResponseBuilder {
	rb.name = name
	return rb
}

// Times limits how many times this expectation can match
func (rb *JudgeResponseBuilder) Times(n int) *JudgeResponseBuilder {
	rb.times = n
	return rb
}

// Pass configures a PASS verdict with the given reason.
func (rb *JudgeResponseBuilder) Pass(reason string) *JudgeBuilder {
	return rb.respond(openai.JudgePass(reason))
}

// Fail configures a FAIL verdict with the given reason.
func (rb *JudgeResponseBuilder) Fail(reason string) *JudgeBuilder {
	return rb.respond(openai.JudgeFail(reason))
}

// Reply configures an arbitrary judge reply, for malformed verdicts.
func (rb *JudgeResponseBuilder) Reply(text string) *JudgeBuilder {
	return rb.respond(openai.JudgeText(text))
}

// Error configures the judge to return an API error
func (rb *JudgeResponseBuilder) Error(statusCode int, message string) *JudgeBuilder {
	return rb.respond(openai.JudgeError(statusCode, message))
}

// Unavailable configures the judge to return a 503 error
func (rb *JudgeResponseBuilder) Unavailable() *JudgeBuilder {
	return rb.respond(openai.JudgeUnavailable())
}

func (rb *JudgeResponseBuilder) respond(r *openai.Response) *JudgeBuilder {
	rb.judge.expectations = append(rb.judge.expectations, &openai.Expectation{
		Name:      rb.name,
		Matcher:   openai.And(openai.ModelIs(rb.judge.model), rb.matcher),
		Responses: []*openai.Response{r},
		Times:     rb.times,
	})
	return rb.judge
}
