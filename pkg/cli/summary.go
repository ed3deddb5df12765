package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/eval"
	"github.com/bradyops/brady/pkg/results"
)

// SummaryOutput is the machine-readable form of "brady eval summary".
type SummaryOutput struct {
	results.Stats
	Cases []CaseSummary `json:"cases"`
}

// CaseSummary is the one-line outcome of a single case.
type CaseSummary struct {
	ID            string   `json:"id"`
	Passed        bool     `json:"passed"`
	Turns         int      `json:"turns"`
	ToolCalls     int      `json:"toolCalls"`
	FailureReason string   `json:"failureReason,omitempty"`
	SystemErrors  []string `json:"systemErrors,omitempty"`
}

// NewSummaryCmd creates the summary command
func NewSummaryCmd() *cobra.Command {
	var caseFilter string
	var outputFormat string
	var githubOutput bool

	cmd := &cobra.Command{
		Use:   "summary <results-file>",
		Short: "Summarize evaluation results",
		Long: `Print pass/fail per case and the overall score of a results file.

Examples:
  brady eval summary brady-orders-out.json
  brady eval summary --case ord-999 brady-orders-out.json
  brady eval summary --output json brady-orders-out.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := results.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			filtered := results.Filter(run.Results, caseFilter)
			summary := buildSummaryOutput(args[0], filtered)
			summary.Dataset = run.Dataset

			switch {
			case githubOutput:
				return writeGitHubOutput(summary)
			case outputFormat == "json":
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(summary)
			case outputFormat == "text":
				outputTextSummary(filtered, summary)
				return nil
			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&caseFilter, "case", "", "Only summarize cases whose id contains this value")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&githubOutput, "github-output", false, "Emit key=value pairs for GitHub Actions ($GITHUB_OUTPUT when set)")

	return cmd
}

func buildSummaryOutput(resultsFile string, cases []*eval.EvalResult) SummaryOutput {
	summary := SummaryOutput{
		Stats: results.CalculateStats(resultsFile, cases),
		Cases: make([]CaseSummary, 0, len(cases)),
	}

	for _, c := range cases {
		summary.Cases = append(summary.Cases, CaseSummary{
			ID:            c.CaseID,
			Passed:        c.Passed,
			Turns:         c.Transcript.Len(),
			ToolCalls:     c.ToolCallCount(),
			FailureReason: results.FailureReason(c),
			SystemErrors:  results.SystemErrors(c),
		})
	}

	return summary
}

func outputTextSummary(cases []*eval.EvalResult, summary SummaryOutput) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	_, _ = bold.Println("=== Evaluation Summary ===")
	fmt.Println()

	for _, c := range summary.Cases {
		if c.Passed {
			_, _ = green.Printf("  ✓ %s", c.ID)
		} else {
			_, _ = red.Printf("  ✗ %s", c.ID)
		}
		fmt.Printf(" (turns=%d tools=%d)\n", c.Turns, c.ToolCalls)
		if c.FailureReason != "" {
			fmt.Printf("      %s\n", truncateString(c.FailureReason, defaultMaxLineLength))
		}
		for _, e := range c.SystemErrors {
			_, _ = yellow.Printf("      %s\n", truncateString(e, defaultMaxLineLength))
		}
	}

	if len(cases) > 0 {
		fmt.Println()
	}

	fmt.Printf("Cases:        %d/%d passed (%.2f%%)\n", summary.CasesPassed, summary.CasesTotal, summary.PassRate*100)
	fmt.Printf("Tool calls:   %d\n", summary.ToolCalls)
	if summary.AgentErrors > 0 || summary.JudgeErrors > 0 {
		_, _ = yellow.Printf("Errors:       agent=%d judge=%d\n", summary.AgentErrors, summary.JudgeErrors)
	}

	scoreColor := red
	if summary.CasesTotal > 0 && summary.Score == 100 {
		scoreColor = green
	}
	_, _ = scoreColor.Printf("Final Score:  %d%%\n", summary.Score)
}

func writeGitHubOutput(summary SummaryOutput) error {
	out := os.Stdout
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open GITHUB_OUTPUT: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err := fmt.Fprintf(out, "score=%d\npassed=%d\ntotal=%d\npass-rate=%.4f\n",
		summary.Score, summary.CasesPassed, summary.CasesTotal, summary.PassRate)
	return err
}
