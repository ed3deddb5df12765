// Package results provides utilities for loading, filtering, and analyzing evaluation results.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
)

// Stats holds computed statistics from evaluation results.
type Stats struct {
	ResultsFile string  `json:"resultsFile"`
	Dataset     string  `json:"dataset,omitempty"`
	CasesTotal  int     `json:"casesTotal"`
	CasesPassed int     `json:"casesPassed"`
	PassRate    float64 `json:"passRate"`
	Score       int     `json:"score"`
	TurnsTotal  int     `json:"turnsTotal"`
	ToolCalls   int     `json:"toolCalls"`
	AgentErrors int     `json:"agentErrors"`
	JudgeErrors int     `json:"judgeErrors"`
}

// Load reads a JSON results file written by "brady eval run".
func Load(path string) (*eval.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var run eval.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}

	return &run, nil
}

// Save writes run as indented JSON.
func Save(run *eval.RunResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(run); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}

// Filter returns the subset of results whose case ids contain the filter substring.
func Filter(results []*eval.EvalResult, filter string) []*eval.EvalResult {
	if filter == "" {
		return results
	}

	filter = strings.ToLower(filter)
	filtered := make([]*eval.EvalResult, 0, len(results))
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.CaseID), filter) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CalculateStats computes statistics from evaluation results.
func CalculateStats(resultsFile string, results []*eval.EvalResult) Stats {
	stats := Stats{
		ResultsFile: resultsFile,
		CasesTotal:  len(results),
	}

	for _, result := range results {
		if result.Passed {
			stats.CasesPassed++
		}
		if result.AgentError != "" {
			stats.AgentErrors++
		}
		if result.JudgeError != "" {
			stats.JudgeErrors++
		}
		stats.TurnsTotal += result.Transcript.Len()
		stats.ToolCalls += result.ToolCallCount()
	}

	if stats.CasesTotal > 0 {
		stats.PassRate = float64(stats.CasesPassed) / float64(stats.CasesTotal)
	}
	stats.Score = eval.Score(stats.CasesPassed, stats.CasesTotal)

	return stats
}

// FailureReason returns why a case failed, or "" if it passed.
func FailureReason(r *eval.EvalResult) string {
	switch {
	case r.Passed:
		return ""
	case r.AgentError != "":
		return r.AgentError
	case r.JudgeError != "":
		return "judge error: " + r.JudgeError
	default:
		return r.JudgeReason
	}
}

// SystemErrors returns the agent answers that were replaced by a remote
// failure message, in turn order.
func SystemErrors(r *eval.EvalResult) []string {
	if r.Transcript == nil {
		return nil
	}

	var out []string
	for i, ex := range r.Transcript.Exchanges {
		if agent.IsSystemError(ex.Agent) {
			out = append(out, fmt.Sprintf("turn %d: %s", i+1, ex.Agent))
		}
	}
	return out
}
