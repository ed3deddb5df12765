package testcase

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
)

// Assertion checks one property of a finished run
type Assertion interface {
	Assert(t *testing.T, ctx *RunContext)
}

func requireCase(t *testing.T, ctx *RunContext, id string) *eval.EvalResult {
	t.Helper()
	require.NotNil(t, ctx.Results, "no results were saved")
	res := ctx.Case(id)
	require.NotNil(t, res, "no result for case %s", id)
	return res
}

// ExitCodeAssertion checks the command exit code
type ExitCodeAssertion struct {
	Expected int
}

func (a *ExitCodeAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	assert.Equal(t, a.Expected, ctx.ExitCode, "unexpected exit code (err: %v)", ctx.Err)
}

// ScoreAssertion checks the final score
type ScoreAssertion struct {
	Expected int
}

func (a *ScoreAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	require.NotNil(t, ctx.Results, "no results were saved")
	assert.Equal(t, a.Expected, ctx.Results.Score)
	assert.Contains(t, ctx.Output, fmt.Sprintf("Final Score: %d%%", a.Expected))
}

// CaseResultAssertion checks whether a case passed
type CaseResultAssertion struct {
	CaseID string
	Passed bool
}

func (a *CaseResultAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	res := requireCase(t, ctx, a.CaseID)
	assert.Equal(t, a.Passed, res.Passed, "case %s: judge reason %q, agent error %q, judge error %q",
		a.CaseID, res.JudgeReason, res.AgentError, res.JudgeError)
}

// ResultOrderAssertion checks that results follow dataset order
type ResultOrderAssertion struct {
	Expected []string
}

func (a *ResultOrderAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	require.NotNil(t, ctx.Results, "no results were saved")
	got := make([]string, 0, len(ctx.Results.Results))
	for _, res := range ctx.Results.Results {
		got = append(got, res.CaseID)
	}
	assert.Equal(t, a.Expected, got)
}

// ToolCalledAssertion checks that a tool was called during a case
type ToolCalledAssertion struct {
	CaseID string
	Tool   string
}

func (a *ToolCalledAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	res := requireCase(t, ctx, a.CaseID)
	assert.NotEmpty(t, toolCalls(res, a.Tool), "tool %s was not called in case %s", a.Tool, a.CaseID)
}

// ToolResultContainsAssertion checks the payload a tool returned during a case
type ToolResultContainsAssertion struct {
	CaseID    string
	Tool      string
	Substring string
}

func (a *ToolResultContainsAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	res := requireCase(t, ctx, a.CaseID)
	calls := toolCalls(res, a.Tool)
	require.NotEmpty(t, calls, "tool %s was not called in case %s", a.Tool, a.CaseID)

	for _, c := range calls {
		payload, err := json.Marshal(c.Result)
		require.NoError(t, err)
		if strings.Contains(string(payload), a.Substring) {
			return
		}
	}
	t.Errorf("no %s result in case %s contains %q", a.Tool, a.CaseID, a.Substring)
}

func toolCalls(res *eval.EvalResult, name string) []agent.ToolInvocation {
	if res.Transcript == nil {
		return nil
	}
	var out []agent.ToolInvocation
	for _, ex := range res.Transcript.Exchanges {
		for _, c := range ex.ToolCalls {
			if c.Name == name {
				out = append(out, c)
			}
		}
	}
	return out
}

// TranscriptLengthAssertion checks how many exchanges a case recorded
type TranscriptLengthAssertion struct {
	CaseID   string
	Expected int
}

func (a *TranscriptLengthAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	res := requireCase(t, ctx, a.CaseID)
	require.NotNil(t, res.Transcript, "case %s has no transcript", a.CaseID)
	assert.Len(t, res.Transcript.Exchanges, a.Expected)
}

// AnswerContainsAssertion checks the agent's answer to a 1-based turn
type AnswerContainsAssertion struct {
	CaseID    string
	Turn      int
	Substring string
}

func (a *AnswerContainsAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	res := requireCase(t, ctx, a.CaseID)
	require.NotNil(t, res.Transcript, "case %s has no transcript", a.CaseID)
	require.GreaterOrEqual(t, len(res.Transcript.Exchanges), a.Turn, "case %s has too few turns", a.CaseID)
	assert.Contains(t, res.Transcript.Exchanges[a.Turn-1].Agent, a.Substring)
}

// JudgeCalledTimesAssertion counts grading requests sent to the judge model
type JudgeCalledTimesAssertion struct {
	Expected int
}

func (a *JudgeCalledTimesAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	assert.Len(t, ctx.Server.RequestsFor(agent.DefaultJudgeModel), a.Expected)
}

// OutputContainsAssertion checks the command output
type OutputContainsAssertion struct {
	Substring string
}

func (a *OutputContainsAssertion) Assert(t *testing.T, ctx *RunContext) {
	t.Helper()
	assert.Contains(t, ctx.Output, a.Substring)
}
