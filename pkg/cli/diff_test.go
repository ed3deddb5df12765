package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
)

func TestDiffCommand(t *testing.T) {
	baseResults := sampleResults()
	currentResults := sampleResultsImproved()

	baseFile := createTestResultsFile(t, baseResults)
	currentFile := createTestResultsFile(t, currentResults)

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", currentFile})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("diff command failed: %v", err)
	}
}

func TestDiffCommandMarkdown(t *testing.T) {
	baseResults := sampleResults()
	currentResults := sampleResultsImproved()

	baseFile := createTestResultsFile(t, baseResults)
	currentFile := createTestResultsFile(t, currentResults)

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", currentFile, "--output", "markdown"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("diff command with --output markdown failed: %v", err)
	}

	for _, want := range []string{"| Score | 67 | 100 | +33 |", "#### ✅ Improvements (1)", "- `case-4`: PASSED"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("markdown diff missing %q, got:\n%s", want, buf.String())
		}
	}
}

func TestDiffCommandFailOnRegression(t *testing.T) {
	baseFile := createTestResultsFile(t, sampleResultsImproved())
	currentFile := createTestResultsFile(t, sampleResults())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", currentFile, "--fail-on-regression"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	if !errors.Is(err, errRegressions) {
		t.Fatalf("expected errRegressions, got: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ case-3: PASSED → FAILED") {
		t.Errorf("expected regression line in output, got:\n%s", buf.String())
	}
}

func TestDiffCommandUnknownFormat(t *testing.T) {
	file := createTestResultsFile(t, sampleResults())

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", file, "--current", file, "-o", "html"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err == nil {
		t.Error("diff command should fail with an unknown output format")
	}
}

func TestDiffCommandBaseNotFound(t *testing.T) {
	currentResults := sampleResults()
	currentFile := createTestResultsFile(t, currentResults)

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", "/nonexistent/path/base.json", "--current", currentFile})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("diff command should fail with nonexistent base file")
	}
}

func TestDiffCommandCurrentNotFound(t *testing.T) {
	baseResults := sampleResults()
	baseFile := createTestResultsFile(t, baseResults)

	cmd := NewDiffCmd()
	cmd.SetArgs([]string{"--base", baseFile, "--current", "/nonexistent/path/current.json"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("diff command should fail with nonexistent current file")
	}
}

func TestCalculateDiff(t *testing.T) {
	baseResults := sampleResults()
	headResults := sampleResultsImproved()

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	if diff.BaseStats.CasesTotal != 3 {
		t.Errorf("BaseStats.CasesTotal = %d, want 3", diff.BaseStats.CasesTotal)
	}

	// improved results have 4 cases
	if diff.HeadStats.CasesTotal != 4 {
		t.Errorf("HeadStats.CasesTotal = %d, want 4", diff.HeadStats.CasesTotal)
	}

	// case-3 passes in head
	if len(diff.Improvements) != 1 {
		t.Errorf("len(Improvements) = %d, want 1", len(diff.Improvements))
	}

	if len(diff.New) != 1 {
		t.Errorf("len(New) = %d, want 1", len(diff.New))
	}

	if diff.HeadStats.Score != 100 {
		t.Errorf("HeadStats.Score = %d, want 100", diff.HeadStats.Score)
	}
}

func TestCalculateDiffRegressions(t *testing.T) {
	// Swap base and head to test regressions
	baseResults := sampleResultsImproved()
	headResults := sampleResults()

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	if len(diff.Regressions) != 1 {
		t.Fatalf("len(Regressions) = %d, want 1", len(diff.Regressions))
	}

	if diff.Regressions[0].FailureReason != "no apology" {
		t.Errorf("Regressions[0].FailureReason = %q, want 'no apology'", diff.Regressions[0].FailureReason)
	}

	if len(diff.Removed) != 1 {
		t.Errorf("len(Removed) = %d, want 1", len(diff.Removed))
	}
}

func TestCalculateDiffNoChanges(t *testing.T) {
	results := sampleResults()

	diff := calculateDiff("base.json", "head.json", results, results)

	if len(diff.Regressions) != 0 {
		t.Errorf("len(Regressions) = %d, want 0", len(diff.Regressions))
	}

	if len(diff.Improvements) != 0 {
		t.Errorf("len(Improvements) = %d, want 0", len(diff.Improvements))
	}

	if len(diff.New) != 0 {
		t.Errorf("len(New) = %d, want 0", len(diff.New))
	}

	if len(diff.Removed) != 0 {
		t.Errorf("len(Removed) = %d, want 0", len(diff.Removed))
	}
}

func TestCalculateDiffNewSystemErrors(t *testing.T) {
	baseResults := sampleResults()
	headResults := sampleResults()
	headResults[0] = &eval.EvalResult{
		CaseID: "case-1",
		Turns:  []string{"Where is ORD-123?"},
		Transcript: &agent.Transcript{Exchanges: []agent.Exchange{
			exchange("Where is ORD-123?", agent.SystemErrorPrefix+"503 Service Unavailable"),
		}},
		JudgeReason: "no status",
	}

	diff := calculateDiff("base.json", "head.json", baseResults, headResults)

	if len(diff.Unstable) != 1 {
		t.Fatalf("len(Unstable) = %d, want 1", len(diff.Unstable))
	}
	if diff.Unstable[0].CaseID != "case-1" {
		t.Errorf("Unstable[0].CaseID = %q, want case-1", diff.Unstable[0].CaseID)
	}
	if len(diff.Regressions) != 1 {
		t.Errorf("len(Regressions) = %d, want 1", len(diff.Regressions))
	}

	var buf bytes.Buffer
	writeTextDiff(&buf, diff)
	if !strings.Contains(buf.String(), "New System Errors (1)") {
		t.Errorf("text diff missing system errors section, got:\n%s", buf.String())
	}
}

func TestCalculateDiffEmptyBase(t *testing.T) {
	headResults := sampleResults()

	diff := calculateDiff("base.json", "head.json", []*eval.EvalResult{}, headResults)

	// All cases in head should be "new"
	if len(diff.New) != 3 {
		t.Errorf("len(New) = %d, want 3", len(diff.New))
	}
}

func TestCalculateDiffEmptyHead(t *testing.T) {
	baseResults := sampleResults()

	diff := calculateDiff("base.json", "head.json", baseResults, []*eval.EvalResult{})

	// All cases in base should be "removed"
	if len(diff.Removed) != 3 {
		t.Errorf("len(Removed) = %d, want 3", len(diff.Removed))
	}
}

func TestFormatChangeMarkdown(t *testing.T) {
	tests := []struct {
		change   float64
		contains string
	}{
		{0.1, "🟢"},
		{-0.1, "🔴"},
		{0.0, "➖"},
	}

	for _, tt := range tests {
		result := formatChangeMarkdown(tt.change)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("formatChangeMarkdown(%f) = %q, want to contain %q", tt.change, result, tt.contains)
		}
	}
}

// sampleResultsImproved returns improved results for diff testing
func sampleResultsImproved() []*eval.EvalResult {
	improved := sampleResults()
	improved[2] = &eval.EvalResult{
		CaseID:   "case-3",
		Turns:    []string{"Where is ORD-999?"},
		Criteria: "Apologizes and asks to double-check the ID.",
		Passed:   true, // Now passes
		Transcript: &agent.Transcript{Exchanges: []agent.Exchange{
			exchange("Where is ORD-999?", "Sorry, I couldn't find ORD-999. Could you double-check the ID?", "lookup_order"),
		}},
		JudgeReason: "apologized",
	}
	return append(improved, &eval.EvalResult{
		CaseID:   "case-4",
		Turns:    []string{"Make me a fake order"},
		Criteria: "Returns a generated order id.",
		Passed:   true,
		Transcript: &agent.Transcript{Exchanges: []agent.Exchange{
			exchange("Make me a fake order", "Here is ORD-4821.", "generate_random_order"),
		}},
	})
}
