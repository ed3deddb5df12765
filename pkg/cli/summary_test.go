package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
)

func TestSummaryCommand(t *testing.T) {
	results := sampleResults()
	filePath := createTestResultsFile(t, results)

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("summary command failed: %v", err)
	}
}

func TestSummaryCommandWithCaseFilter(t *testing.T) {
	results := sampleResults()
	filePath := createTestResultsFile(t, results)

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath, "--case", "case-1"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("summary command with --case filter failed: %v", err)
	}
}

func TestSummaryCommandJSONOutput(t *testing.T) {
	results := sampleResults()
	filePath := createTestResultsFile(t, results)

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath, "--output", "json"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("summary command with --output json failed: %v", err)
	}
}

func TestSummaryCommandUnknownOutput(t *testing.T) {
	filePath := createTestResultsFile(t, sampleResults())

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath, "--output", "xml"})

	if err := cmd.Execute(); err == nil {
		t.Error("summary command should fail with unknown output format")
	}
}

func TestSummaryCommandGitHubOutput(t *testing.T) {
	results := sampleResults()
	filePath := createTestResultsFile(t, results)

	outFile := filepath.Join(t.TempDir(), "github_output")
	t.Setenv("GITHUB_OUTPUT", outFile)

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath, "--github-output"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("summary command with --github-output failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("failed to read GITHUB_OUTPUT: %v", err)
	}
	if !strings.Contains(string(data), "score=67\n") {
		t.Errorf("GITHUB_OUTPUT = %q, want score=67", string(data))
	}
}

func TestSummaryCommandEmptyResults(t *testing.T) {
	filePath := createTestResultsFile(t, []*eval.EvalResult{})

	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{filePath})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("summary command with empty results failed: %v", err)
	}
}

func TestSummaryCommandFileNotFound(t *testing.T) {
	cmd := NewSummaryCmd()
	cmd.SetArgs([]string{"/nonexistent/path/results.json"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := cmd.Execute()
	if err == nil {
		t.Error("summary command should fail with nonexistent file")
	}
}

func TestBuildSummaryOutput(t *testing.T) {
	results := sampleResults()
	summary := buildSummaryOutput("test.json", results)

	if summary.CasesTotal != 3 {
		t.Errorf("CasesTotal = %d, want 3", summary.CasesTotal)
	}

	if summary.CasesPassed != 2 {
		t.Errorf("CasesPassed = %d, want 2", summary.CasesPassed)
	}

	if summary.Score != 67 {
		t.Errorf("Score = %d, want 67", summary.Score)
	}

	if len(summary.Cases) != 3 {
		t.Fatalf("len(Cases) = %d, want 3", len(summary.Cases))
	}

	if summary.Cases[0].ID != "case-1" {
		t.Errorf("Cases[0].ID = %s, want case-1", summary.Cases[0].ID)
	}
	if !summary.Cases[0].Passed {
		t.Error("Cases[0].Passed should be true")
	}

	if summary.Cases[1].Turns != 2 {
		t.Errorf("Cases[1].Turns = %d, want 2", summary.Cases[1].Turns)
	}

	if summary.Cases[2].FailureReason != "no apology" {
		t.Errorf("Cases[2].FailureReason = %q, want 'no apology'", summary.Cases[2].FailureReason)
	}
	if len(summary.Cases[2].SystemErrors) != 1 {
		t.Errorf("len(Cases[2].SystemErrors) = %d, want 1", len(summary.Cases[2].SystemErrors))
	}
}

func TestOutputTextSummary(t *testing.T) {
	results := sampleResults()
	summary := buildSummaryOutput("test.json", results)

	// Just ensure it doesn't panic
	outputTextSummary(results, summary)
}

func TestOutputTextSummaryAborted(t *testing.T) {
	results := []*eval.EvalResult{
		{
			CaseID:     "case-1",
			Turns:      []string{"Hi"},
			Transcript: &agent.Transcript{},
			AgentError: `case "case-1" aborted at turn 1: failed to open session`,
		},
		{
			CaseID: "case-2",
		},
	}
	summary := buildSummaryOutput("test.json", results)

	// Just ensure it doesn't panic
	outputTextSummary(results, summary)
}
