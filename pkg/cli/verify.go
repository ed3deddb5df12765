// Package cli provides the brady command tree: serving the agent, running
// evaluations and inspecting their results.
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

var errThresholdsNotMet = errors.New("thresholds not met")

// thresholdCheck is one line of the verify report.
type thresholdCheck struct {
	name   string
	actual string
	limit  string
	op     string // comparison that must hold, e.g. ">="
	met    bool
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var minScore int
	var minPassRate float64
	var maxSystemErrors int

	cmd := &cobra.Command{
		Use:   "verify <results-file>",
		Short: "Verify evaluation results meet thresholds",
		Long: `Check a results file against minimum quality thresholds, for CI.

By default every case must pass. Exits with code 0 if all thresholds are met,
code 1 otherwise. Use 'brady eval summary' to see which cases failed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := results.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			stats := results.CalculateStats(args[0], run.Results)
			checks := []thresholdCheck{
				{
					name:   "Score",
					actual: fmt.Sprintf("%d%%", stats.Score),
					limit:  fmt.Sprintf("%d%%", minScore),
					op:     ">=",
					met:    stats.Score >= minScore,
				},
				{
					name:   "Case Pass Rate",
					actual: fmt.Sprintf("%.2f%%", stats.PassRate*100),
					limit:  fmt.Sprintf("%.2f%%", minPassRate*100),
					op:     ">=",
					met:    stats.PassRate >= minPassRate,
				},
			}
			if maxSystemErrors >= 0 {
				n := casesWithSystemErrors(run.Results)
				checks = append(checks, thresholdCheck{
					name:   "System Errors",
					actual: fmt.Sprint(n),
					limit:  fmt.Sprint(maxSystemErrors),
					op:     "<=",
					met:    n <= maxSystemErrors,
				})
			}

			if !writeVerifyReport(cmd.OutOrStdout(), checks) {
				// silent (SilenceErrors), only sets the exit code
				return errThresholdsNotMet
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 100, "Minimum score (0-100)")
	cmd.Flags().Float64Var(&minPassRate, "pass-rate", 0.0, "Minimum case pass rate (0.0-1.0)")
	cmd.Flags().IntVar(&maxSystemErrors, "max-system-errors", -1, "Maximum number of cases with a system error answer (-1 for no limit)")

	return cmd
}

func casesWithSystemErrors(rs []*eval.EvalResult) int {
	n := 0
	for _, r := range rs {
		if len(results.SystemErrors(r)) > 0 {
			n++
		}
	}
	return n
}

// writeVerifyReport prints every check and reports whether all were met.
func writeVerifyReport(w io.Writer, checks []thresholdCheck) bool {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	_, _ = color.New(color.Bold).Fprintln(w, "=== Threshold Verification ===")
	fmt.Fprintln(w)

	passed := true
	for _, c := range checks {
		label := fmt.Sprintf("%-15s", c.name+":")
		if c.met {
			_, _ = green.Fprintf(w, "%s %s %s %s ✓\n", label, c.actual, c.op, c.limit)
			continue
		}
		passed = false
		_, _ = red.Fprintf(w, "%s %s %s %s ✗\n", label, c.actual, negate(c.op), c.limit)
	}

	fmt.Fprintln(w)
	if passed {
		_, _ = green.Fprintln(w, "Result: PASSED")
	} else {
		_, _ = red.Fprintln(w, "Result: FAILED")
	}
	return passed
}

func negate(op string) string {
	switch op {
	case ">=":
		return "<"
	case "<=":
		return ">"
	default:
		return "!" + op
	}
}
