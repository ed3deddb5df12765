// Package testcase provides a fluent API for defining functional test cases
// that run brady evaluations against a mock model server.
package testcase

import (
	"testing"

	"github.com/bradyops/brady/pkg/dataset"
)

// TestCase represents a complete functional test scenario
type TestCase struct {
	t    *testing.T
	name string

	agent *AgentBuilder
	judge *JudgeBuilder
	cases []dataset.TestCase
	args  []string

	assertions []Assertion
}

// New creates a new test case with the given name
func New(t *testing.T, name string) *TestCase {
	return &TestCase{
		t:    t,
		name: name,
	}
}

// WithAgent configures the mock agent behavior
func (tc *TestCase) WithAgent(configure func(*AgentBuilder)) *TestCase {
	tc.agent = NewAgentBuilder()
	configure(tc.agent)
	return tc
}

// WithJudge configures the mock judge behavior.
// The judge is an LLM that grades transcripts and replies PASS or FAIL.
func (tc *TestCase) WithJudge(configure func(*JudgeBuilder)) *TestCase {
	tc.judge = NewJudgeBuilder()
	configure(tc.judge)
	return tc
}

// WithCase adds a dataset entry. Each turn is one user message.
func (tc *TestCase) WithCase(id, criteria string, turns ...string) *TestCase {
	tc.cases = append(tc.cases, dataset.TestCase{
		ID:       id,
		Input:    turns,
		Criteria: criteria,
	})
	return tc
}

// WithArgs appends extra arguments to 'brady eval run'
func (tc *TestCase) WithArgs(args ...string) *TestCase {
	tc.args = append(tc.args, args...)
	return tc
}

// Expect adds an assertion to be checked after the test runs
func (tc *TestCase) Expect(a Assertion) *TestCase {
	tc.assertions = append(tc.assertions, a)
	return tc
}

// ExpectExitCode asserts the command exit code
func (tc *TestCase) ExpectExitCode(code int) *TestCase {
	return tc.Expect(&ExitCodeAssertion{Expected: code})
}

// ExpectScore asserts the final score
func (tc *TestCase) ExpectScore(score int) *TestCase {
	return tc.Expect(&ScoreAssertion{Expected: score})
}

// ExpectCasePassed asserts that the case with the given id passed
func (tc *TestCase) ExpectCasePassed(id string) *TestCase {
	return tc.Expect(&CaseResultAssertion{CaseID: id, Passed: true})
}

// ExpectCaseFailed asserts that the case with the given id failed
func (tc *TestCase) ExpectCaseFailed(id string) *TestCase {
	return tc.Expect(&CaseResultAssertion{CaseID: id, Passed: false})
}

// ExpectResultsInOrder asserts that results keep dataset order
func (tc *TestCase) ExpectResultsInOrder(ids ...string) *TestCase {
	return tc.Expect(&ResultOrderAssertion{Expected: ids})
}

// ExpectToolCalled asserts that the agent called a tool during a case
func (tc *TestCase) ExpectToolCalled(caseID, tool string) *TestCase {
	return tc.Expect(&ToolCalledAssertion{CaseID: caseID, Tool: tool})
}

// ExpectToolResultContains asserts that a tool result in a case contains a substring
func (tc *TestCase) ExpectToolResultContains(caseID, tool, substring string) *TestCase {
	return tc.Expect(&ToolResultContainsAssertion{CaseID: caseID, Tool: tool, Substring: substring})
}

// ExpectTranscriptLength asserts the number of exchanges recorded for a case
func (tc *TestCase) ExpectTranscriptLength(caseID string, n int) *TestCase {
	return tc.Expect(&TranscriptLengthAssertion{CaseID: caseID, Expected: n})
}

// ExpectAnswerContains asserts that the agent's answer to a turn contains a substring
func (tc *TestCase) ExpectAnswerContains(caseID string, turn int, substring string) *TestCase {
	return tc.Expect(&AnswerContainsAssertion{CaseID: caseID, Turn: turn, Substring: substring})
}

// ExpectJudgeCalledTimes asserts how many grading requests were made
func (tc *TestCase) ExpectJudgeCalledTimes(n int) *TestCase {
	return tc.Expect(&JudgeCalledTimesAssertion{Expected: n})
}

// ExpectOutputContains asserts that the command output contains a substring
func (tc *TestCase) ExpectOutputContains(substring string) *TestCase {
	return tc.Expect(&OutputContainsAssertion{Substring: substring})
}

// Run executes the test case
func (tc *TestCase) Run() {
	tc.t.Helper()
	tc.t.Run(tc.name, func(t *testing.T) {
		runner := &Runner{tc: tc, t: t}
		runner.Run()
	})
}

// Name returns the test case name
func (tc *TestCase) Name() string {
	return tc.name
}
