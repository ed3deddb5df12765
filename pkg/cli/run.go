package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/config"
	"github.com/bradyops/brady/pkg/dataset"
	"github.com/bradyops/brady/pkg/eval"
	"github.com/bradyops/brady/pkg/llmjudge"
	"github.com/bradyops/brady/pkg/results"
	"github.com/bradyops/brady/pkg/util"
)

// errScoreBelowPerfect makes the process exit non-zero after the results
// have been reported.
var errScoreBelowPerfect = errors.New("score below 100")

// NewRunCmd creates the run command
func NewRunCmd(opts *globalOptions) *cobra.Command {
	var toolsURL string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "run <dataset-file>",
		Short: "Run an evaluation",
		Long: `Run every test case of a dataset against the agent and grade each
transcript with the judge model.

Results are saved to brady-<dataset>-out.json. The command exits non-zero
unless every case passed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			ds, err := dataset.FromFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig(cmd, map[string]string{
				"run.concurrency":   "concurrency",
				"run.output":        "output",
				"run.maxToolRounds": "max-tool-rounds",
			})
			if err != nil {
				return err
			}
			if err := cfg.Validate(config.ScopeAgent, config.ScopeJudge); err != nil {
				return err
			}

			registry, closeTools, err := loadTools(ctx, toolsURL)
			if err != nil {
				return err
			}
			defer closeTools()

			model, err := newAgentModel(ctx, cfg, registry)
			if err != nil {
				return err
			}

			judge, err := llmjudge.NewFromConfig(ctx, cfg.JudgeConfig())
			if err != nil {
				return err
			}

			runner, err := eval.NewRunner(model, registry, judge,
				eval.WithConcurrency(cfg.Run.Concurrency),
				eval.WithMaxToolRounds(cfg.Run.MaxToolRounds),
			)
			if err != nil {
				return fmt.Errorf("failed to create eval runner: %w", err)
			}

			display := newProgressDisplay(out, util.IsVerbose(ctx))
			run, runErr := runner.RunWithProgress(ctx, ds, display.handleProgress)
			if run == nil {
				return fmt.Errorf("eval failed: %w", runErr)
			}

			if outputFile == "" {
				outputFile = fmt.Sprintf("brady-%s-out.json", ds.Metadata.Name)
			}
			if err := results.Save(run, outputFile); err != nil {
				return fmt.Errorf("failed to save results to file: %w", err)
			}
			fmt.Fprintf(out, "\n📄 Results saved to: %s\n", outputFile)

			if err := displayResults(out, run, cfg.Run.Output); err != nil {
				return fmt.Errorf("failed to display results: %w", err)
			}

			if runErr != nil {
				return fmt.Errorf("eval interrupted: %w", runErr)
			}
			if run.ExitCode() != 0 {
				// the summary already explains the failure
				cmd.SilenceErrors = true
				return errScoreBelowPerfect
			}

			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	cmd.Flags().Int("concurrency", 1, "Number of test cases to run at once")
	cmd.Flags().Int("max-tool-rounds", agent.DefaultMaxToolRounds, "Maximum tool-call round trips per turn")
	cmd.Flags().StringVar(&toolsURL, "tools-url", "", "Use the tools served by this MCP endpoint instead of the built-in ones")
	cmd.Flags().StringVar(&outputFile, "results-file", "", "Where to save results (default: brady-<dataset>-out.json)")

	return cmd
}

// progressDisplay handles interactive progress display
type progressDisplay struct {
	out     io.Writer
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(out io.Writer, verbose bool) *progressDisplay {
	return &progressDisplay{
		out:     out,
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleProgress(event eval.ProgressEvent) {
	switch event.Type {
	case eval.EventEvalStart:
		d.bold.Fprintln(d.out, "\n=== Starting Evaluation ===")
		fmt.Fprintln(d.out, event.Message)

	case eval.EventCaseStart:
		fmt.Fprintln(d.out)
		d.cyan.Fprintf(d.out, "Case: %s\n", event.Case.CaseID)
		fmt.Fprintf(d.out, "  Turns: %d\n", len(event.Case.Turns))

	case eval.EventTurnComplete:
		fmt.Fprintf(d.out, "  → Turn %d/%d answered\n", event.Turn, len(event.Case.Turns))
		if d.verbose {
			fmt.Fprintf(d.out, "    Agent: %s\n", truncateString(strings.ReplaceAll(event.Message, "\n", " "), 120))
		}

	case eval.EventCaseJudging:
		fmt.Fprintf(d.out, "  → Judging transcript...\n")

	case eval.EventCaseComplete:
		c := event.Case
		switch {
		case c.Passed:
			d.green.Fprintf(d.out, "  ✓ Case passed\n")
		case c.AgentError != "":
			d.red.Fprintf(d.out, "  ✗ Conversation aborted\n")
			fmt.Fprintf(d.out, "    Error: %s\n", c.AgentError)
		case c.JudgeError != "":
			d.yellow.Fprintf(d.out, "  ✗ Judge could not grade the case\n")
			fmt.Fprintf(d.out, "    Error: %s\n", c.JudgeError)
		default:
			d.red.Fprintf(d.out, "  ✗ Case failed\n")
			if c.JudgeReason != "" {
				fmt.Fprintf(d.out, "    Reason: %s\n", c.JudgeReason)
			}
		}

	case eval.EventEvalComplete:
		fmt.Fprintln(d.out)
		d.bold.Fprintln(d.out, "=== Evaluation Complete ===")
	}
}

func displayResults(out io.Writer, run *eval.RunResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(run)

	case "text":
		displayTextResults(out, run)
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func displayTextResults(out io.Writer, run *eval.RunResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	fmt.Fprintln(out)
	bold.Fprintln(out, "=== Results Summary ===")
	fmt.Fprintln(out)

	turns, toolCalls := 0, 0
	for _, result := range run.Results {
		turns += result.Transcript.Len()
		toolCalls += result.ToolCallCount()

		fmt.Fprintf(out, "Case: %s\n", result.CaseID)
		fmt.Fprintf(out, "  Turns: %d/%d, tool calls: %d\n", result.Transcript.Len(), len(result.Turns), result.ToolCallCount())

		if result.Passed {
			green.Fprintf(out, "  Status: PASSED\n")
		} else {
			if result.AgentError != "" {
				red.Fprintf(out, "  Status: FAILED (conversation aborted)\n")
			} else {
				red.Fprintf(out, "  Status: FAILED\n")
			}
			if reason := results.FailureReason(result); reason != "" {
				fmt.Fprintf(out, "  Reason: %s\n", reason)
			}
			for _, e := range results.SystemErrors(result) {
				fmt.Fprintf(out, "  System error: %s\n", e)
			}
		}

		fmt.Fprintln(out)
	}

	bold.Fprintln(out, "=== Overall Statistics ===")
	fmt.Fprintf(out, "Agent Model: %s\n", run.AgentModel)
	fmt.Fprintf(out, "Total Cases: %d\n", run.Total)
	fmt.Fprintf(out, "Turns: %d, tool calls: %d\n", turns, toolCalls)

	if run.Passed == run.Total && run.Total > 0 {
		green.Fprintf(out, "Cases Passed: %d/%d\n", run.Passed, run.Total)
		green.Fprintf(out, "Final Score: %d%%\n", run.Score)
	} else {
		fmt.Fprintf(out, "Cases Passed: %d/%d\n", run.Passed, run.Total)
		red.Fprintf(out, "Final Score: %d%%\n", run.Score)
	}
}
