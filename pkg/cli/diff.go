package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/eval"
	"github.com/bradyops/brady/pkg/results"
)

var errRegressions = errors.New("regressions found")

// DiffResult compares a base run against a newer one, case by case.
type DiffResult struct {
	BaseStats    results.Stats
	HeadStats    results.Stats
	Regressions  []CaseDiff
	Improvements []CaseDiff
	New          []CaseDiff
	Removed      []CaseDiff
	// Unstable lists cases whose head transcript has system errors the
	// base transcript did not have.
	Unstable []CaseDiff
}

// CaseDiff holds the diff for a single case
type CaseDiff struct {
	CaseID        string
	BasePassed    bool
	HeadPassed    bool
	BaseToolCalls int
	HeadToolCalls int
	FailureReason string
	SystemErrors  []string
}

func (d CaseDiff) headStatus() string {
	return passLabel(d.HeadPassed)
}

func passLabel(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

// NewDiffCmd creates the diff command
func NewDiffCmd() *cobra.Command {
	var outputFormat string
	var baseFile string
	var currentFile string
	var failOnRegression bool

	cmd := &cobra.Command{
		Use:   "diff --base <results-file> --current <results-file>",
		Short: "Compare two evaluation results",
		Long: `Compare two brady evaluation runs, for example before and after a
change to the agent instruction.

Lists cases that regressed, improved, appeared or disappeared, and cases that
started hitting system errors, followed by the score change.

Example:
  brady eval diff --base results-main.json --current results-pr.json
  brady eval diff --base results-main.json --current results-pr.json -o markdown
  brady eval diff --base a.json --current b.json --fail-on-regression`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseRun, err := results.Load(baseFile)
			if err != nil {
				return fmt.Errorf("failed to load base results: %w", err)
			}

			currentRun, err := results.Load(currentFile)
			if err != nil {
				return fmt.Errorf("failed to load current results: %w", err)
			}

			diff := calculateDiff(baseFile, currentFile, baseRun.Results, currentRun.Results)

			out := cmd.OutOrStdout()
			switch outputFormat {
			case "text":
				writeTextDiff(out, diff)
			case "markdown":
				writeMarkdownDiff(out, diff)
			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}

			if failOnRegression && len(diff.Regressions) > 0 {
				return fmt.Errorf("%w: %d case(s)", errRegressions, len(diff.Regressions))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseFile, "base", "", "Base results file (e.g., main branch)")
	cmd.Flags().StringVar(&currentFile, "current", "", "Current results file (e.g., PR branch)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, markdown)")
	cmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit non-zero when any case regressed")

	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func calculateDiff(baseFile, currentFile string, baseResults, currentResults []*eval.EvalResult) DiffResult {
	diff := DiffResult{
		BaseStats: results.CalculateStats(baseFile, baseResults),
		HeadStats: results.CalculateStats(currentFile, currentResults),
	}

	byID := func(rs []*eval.EvalResult) map[string]*eval.EvalResult {
		m := make(map[string]*eval.EvalResult, len(rs))
		for _, r := range rs {
			m[r.CaseID] = r
		}
		return m
	}
	baseByID := byID(baseResults)
	currentByID := byID(currentResults)

	// head order first, then whatever only the base had
	for _, head := range currentResults {
		d := CaseDiff{
			CaseID:        head.CaseID,
			HeadPassed:    head.Passed,
			HeadToolCalls: head.ToolCallCount(),
			FailureReason: results.FailureReason(head),
			SystemErrors:  results.SystemErrors(head),
		}

		base, ok := baseByID[head.CaseID]
		if !ok {
			diff.New = append(diff.New, d)
			continue
		}
		d.BasePassed = base.Passed
		d.BaseToolCalls = base.ToolCallCount()

		switch {
		case base.Passed && !head.Passed:
			diff.Regressions = append(diff.Regressions, d)
		case !base.Passed && head.Passed:
			diff.Improvements = append(diff.Improvements, d)
		}

		if len(d.SystemErrors) > 0 && len(results.SystemErrors(base)) == 0 {
			diff.Unstable = append(diff.Unstable, d)
		}
	}

	for _, base := range baseResults {
		if _, ok := currentByID[base.CaseID]; ok {
			continue
		}
		diff.Removed = append(diff.Removed, CaseDiff{
			CaseID:        base.CaseID,
			BasePassed:    base.Passed,
			BaseToolCalls: base.ToolCallCount(),
		})
	}

	return diff
}

func writeTextDiff(w io.Writer, diff DiffResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	_, _ = bold.Fprintln(w, "=== Evaluation Diff ===")
	fmt.Fprintln(w)

	if n := len(diff.Regressions); n > 0 {
		_, _ = red.Fprintf(w, "Regressions (%d):\n", n)
		for _, d := range diff.Regressions {
			_, _ = red.Fprintf(w, "  ✗ %s: PASSED → FAILED\n", d.CaseID)
			if d.FailureReason != "" {
				fmt.Fprintf(w, "      %s\n", truncateString(d.FailureReason, defaultMaxLineLength))
			}
		}
		fmt.Fprintln(w)
	}

	if n := len(diff.Improvements); n > 0 {
		_, _ = green.Fprintf(w, "Improvements (%d):\n", n)
		for _, d := range diff.Improvements {
			_, _ = green.Fprintf(w, "  ✓ %s: FAILED → PASSED\n", d.CaseID)
		}
		fmt.Fprintln(w)
	}

	if n := len(diff.Unstable); n > 0 {
		_, _ = yellow.Fprintf(w, "New System Errors (%d):\n", n)
		for _, d := range diff.Unstable {
			fmt.Fprintf(w, "  ! %s\n", d.CaseID)
			for _, msg := range d.SystemErrors {
				fmt.Fprintf(w, "      %s\n", truncateString(msg, defaultMaxLineLength))
			}
		}
		fmt.Fprintln(w)
	}

	if n := len(diff.New); n > 0 {
		_, _ = yellow.Fprintf(w, "New Cases (%d):\n", n)
		for _, d := range diff.New {
			c := red
			if d.HeadPassed {
				c = green
			}
			_, _ = c.Fprintf(w, "  + %s: %s\n", d.CaseID, d.headStatus())
		}
		fmt.Fprintln(w)
	}

	if n := len(diff.Removed); n > 0 {
		_, _ = yellow.Fprintf(w, "Removed Cases (%d):\n", n)
		for _, d := range diff.Removed {
			fmt.Fprintf(w, "  - %s (was %s)\n", d.CaseID, passLabel(d.BasePassed))
		}
		fmt.Fprintln(w)
	}

	base, head := diff.BaseStats, diff.HeadStats

	_, _ = bold.Fprintln(w, "=== Summary ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "             %-11s %-11s Change\n", "Base", "Head")
	fmt.Fprintf(w, "Cases:       %-11s %-11s ",
		fmt.Sprintf("%d/%d", base.CasesPassed, base.CasesTotal),
		fmt.Sprintf("%d/%d", head.CasesPassed, head.CasesTotal))
	writeRateChange(w, head.PassRate-base.PassRate)
	fmt.Fprintf(w, "Score:       %-11s %-11s %+d\n",
		fmt.Sprintf("%d%%", base.Score), fmt.Sprintf("%d%%", head.Score), head.Score-base.Score)
	fmt.Fprintf(w, "Tool calls:  %-11d %-11d %+d\n",
		base.ToolCalls, head.ToolCalls, head.ToolCalls-base.ToolCalls)
	fmt.Fprintf(w, "Aborted:     %-11d %-11d %+d\n",
		base.AgentErrors, head.AgentErrors, head.AgentErrors-base.AgentErrors)
}

func writeRateChange(w io.Writer, change float64) {
	switch {
	case change > 0:
		_, _ = color.New(color.FgGreen).Fprintf(w, "+%.1f%%\n", change*100)
	case change < 0:
		_, _ = color.New(color.FgRed).Fprintf(w, "%.1f%%\n", change*100)
	default:
		fmt.Fprintln(w, "0.0%")
	}
}

func writeMarkdownDiff(w io.Writer, diff DiffResult) {
	base, head := diff.BaseStats, diff.HeadStats

	fmt.Fprintln(w, "### 📊 Brady Evaluation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Metric | Base | Head | Change |")
	fmt.Fprintln(w, "|--------|------|------|--------|")
	fmt.Fprintf(w, "| Cases | %d/%d (%.1f%%) | %d/%d (%.1f%%) | %s |\n",
		base.CasesPassed, base.CasesTotal, base.PassRate*100,
		head.CasesPassed, head.CasesTotal, head.PassRate*100,
		formatChangeMarkdown(head.PassRate-base.PassRate))
	fmt.Fprintf(w, "| Score | %d | %d | %+d |\n", base.Score, head.Score, head.Score-base.Score)
	fmt.Fprintf(w, "| Tool calls | %d | %d | %+d |\n", base.ToolCalls, head.ToolCalls, head.ToolCalls-base.ToolCalls)

	section := func(title string, cases []CaseDiff, line func(CaseDiff) string) {
		if len(cases) == 0 {
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "#### %s (%d)\n", title, len(cases))
		for _, d := range cases {
			fmt.Fprintln(w, line(d))
		}
	}

	section("❌ Regressions", diff.Regressions, func(d CaseDiff) string {
		if d.FailureReason == "" {
			return fmt.Sprintf("- `%s`: PASSED → FAILED", d.CaseID)
		}
		return fmt.Sprintf("- `%s`: PASSED → FAILED - %s", d.CaseID, d.FailureReason)
	})
	section("✅ Improvements", diff.Improvements, func(d CaseDiff) string {
		return fmt.Sprintf("- `%s`: FAILED → PASSED", d.CaseID)
	})
	section("⚠️ New System Errors", diff.Unstable, func(d CaseDiff) string {
		return fmt.Sprintf("- `%s`: %d turn(s)", d.CaseID, len(d.SystemErrors))
	})
	section("🆕 New Cases", diff.New, func(d CaseDiff) string {
		return fmt.Sprintf("- `%s`: %s", d.CaseID, d.headStatus())
	})
	section("🗑️ Removed Cases", diff.Removed, func(d CaseDiff) string {
		return fmt.Sprintf("- `%s`", d.CaseID)
	})
}

func formatChangeMarkdown(change float64) string {
	switch {
	case change > 0:
		return fmt.Sprintf("🟢 +%.1f%%", change*100)
	case change < 0:
		return fmt.Sprintf("🔴 %.1f%%", change*100)
	default:
		return "➖ 0.0%"
	}
}
