package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
)

// createTestResultsFile creates a temporary results file for testing.
func createTestResultsFile(t *testing.T, run *eval.RunResult) string {
	t.Helper()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "results.json")

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal results: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		t.Fatalf("failed to write results file: %v", err)
	}

	return filePath
}

// sampleResults returns a set of sample results for testing.
func sampleResults() []*eval.EvalResult {
	return []*eval.EvalResult{
		{
			CaseID:   "track-ord-123",
			Turns:    []string{"Where is ORD-123?"},
			Criteria: "Gives the delivery date.",
			Passed:   true,
			Transcript: &agent.Transcript{Exchanges: []agent.Exchange{{
				User:      "Where is ORD-123?",
				Agent:     "It arrives Tuesday, Jan 28th.",
				ToolCalls: []agent.ToolInvocation{{Name: "lookup_order"}},
			}}},
			JudgeReason: "date given",
		},
		{
			CaseID:   "missing-ord-999",
			Turns:    []string{"Hi", "Where is ORD-999?"},
			Criteria: "Apologizes.",
			Passed:   false,
			Transcript: &agent.Transcript{Exchanges: []agent.Exchange{
				{User: "Hi", Agent: "Hello!"},
				{User: "Where is ORD-999?", Agent: "System Error: agent chat completion: 503"},
			}},
			JudgeReason: "no apology",
		},
		{
			CaseID:     "aborted",
			Turns:      []string{"Hi"},
			Criteria:   "Greets.",
			Transcript: &agent.Transcript{},
			AgentError: `case "aborted" aborted at turn 1: failed to open session`,
		},
	}
}

func TestCalculateStats(t *testing.T) {
	evalResults := sampleResults()

	stats := CalculateStats("test.json", evalResults)

	if stats.CasesTotal != 3 {
		t.Errorf("CasesTotal = %d, want 3", stats.CasesTotal)
	}

	if stats.CasesPassed != 1 {
		t.Errorf("CasesPassed = %d, want 1", stats.CasesPassed)
	}

	if stats.TurnsTotal != 3 {
		t.Errorf("TurnsTotal = %d, want 3", stats.TurnsTotal)
	}

	if stats.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", stats.ToolCalls)
	}

	if stats.AgentErrors != 1 {
		t.Errorf("AgentErrors = %d, want 1", stats.AgentErrors)
	}

	if stats.Score != 33 {
		t.Errorf("Score = %d, want 33", stats.Score)
	}

	expectedRate := 1.0 / 3.0
	if stats.PassRate != expectedRate {
		t.Errorf("PassRate = %f, want %f", stats.PassRate, expectedRate)
	}
}

func TestCalculateStatsEmptyResults(t *testing.T) {
	stats := CalculateStats("empty.json", []*eval.EvalResult{})

	if stats.CasesTotal != 0 {
		t.Errorf("CasesTotal = %d, want 0", stats.CasesTotal)
	}

	if stats.PassRate != 0 {
		t.Errorf("PassRate = %f, want 0", stats.PassRate)
	}

	if stats.Score != 0 {
		t.Errorf("Score = %d, want 0", stats.Score)
	}
}

func TestLoad(t *testing.T) {
	run := &eval.RunResult{Dataset: "orders", Results: sampleResults(), Passed: 1, Total: 3, Score: 33}
	filePath := createTestResultsFile(t, run)

	loaded, err := Load(filePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Results) != 3 {
		t.Errorf("loaded %d results, want 3", len(loaded.Results))
	}

	if loaded.Results[0].CaseID != "track-ord-123" {
		t.Errorf("first case id = %s, want track-ord-123", loaded.Results[0].CaseID)
	}

	if loaded.Results[1].Transcript.Exchanges[1].User != "Where is ORD-999?" {
		t.Errorf("transcript did not round trip: %+v", loaded.Results[1].Transcript)
	}

	if loaded.Score != 33 || loaded.Dataset != "orders" {
		t.Errorf("run summary = %d/%s, want 33/orders", loaded.Score, loaded.Dataset)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	run := &eval.RunResult{Dataset: "orders", Results: sampleResults()}

	if err := Save(run, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Results) != len(run.Results) {
		t.Errorf("loaded %d results, want %d", len(loaded.Results), len(run.Results))
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/results.json")
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "invalid.json")

	if err := os.WriteFile(filePath, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Load(filePath)
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestFilter(t *testing.T) {
	evalResults := sampleResults()

	tests := []struct {
		name     string
		filter   string
		expected int
	}{
		{"existing case", "track-ord-123", 1},
		{"case insensitive", "ORD-999", 1},
		{"nonexistent case", "ord-456", 0},
		{"empty filter returns all", "", 3},
		{"partial match", "ord", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := Filter(evalResults, tt.filter)
			if len(filtered) != tt.expected {
				t.Errorf("Filter(%q) returned %d results, want %d", tt.filter, len(filtered), tt.expected)
			}
		})
	}
}

func TestFailureReason(t *testing.T) {
	results := sampleResults()

	tests := []struct {
		name     string
		result   *eval.EvalResult
		expected string
	}{
		{"passed", results[0], ""},
		{"judge rationale", results[1], "no apology"},
		{"agent error first", results[2], `case "aborted" aborted at turn 1: failed to open session`},
		{"judge error", &eval.EvalResult{JudgeError: "503"}, "judge error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureReason(tt.result); got != tt.expected {
				t.Errorf("FailureReason() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSystemErrors(t *testing.T) {
	errs := SystemErrors(sampleResults()[1])

	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}

	if errs[0] != "turn 2: System Error: agent chat completion: 503" {
		t.Errorf("errs[0] = %q", errs[0])
	}
}
