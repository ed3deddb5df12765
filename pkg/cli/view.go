package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/eval"
	"github.com/bradyops/brady/pkg/results"
)

const (
	defaultMaxOutputLines = 6
	defaultMaxLineLength  = 100
)

// NewViewCmd creates the view command for rendering eval results.
func NewViewCmd() *cobra.Command {
	opts := viewOptions{
		showTools:      true,
		maxOutputLines: defaultMaxOutputLines,
		maxLineLength:  defaultMaxLineLength,
	}
	var caseFilter string
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "view <results-file>",
		Short: "Pretty-print evaluation transcripts from a JSON file",
		Long: `Render the JSON output produced by "brady eval run" as readable
conversations: every user turn, the tools Brady called for it, its answer and
the judge's verdict.

Examples:
  brady eval view brady-orders-out.json
  brady eval view --failed --raw brady-orders-out.json
  brady eval view --case ord-999 --max-output-lines 3 brady-orders-out.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := results.Load(args[0])
			if err != nil {
				return err
			}

			selected := results.Filter(run.Results, caseFilter)
			if failedOnly {
				selected = failedResults(selected)
			}
			if len(selected) == 0 {
				if caseFilter == "" && !failedOnly {
					return errors.New("no cases found in results")
				}
				return fmt.Errorf("no cases matched filter %q", caseFilter)
			}

			v := &transcriptView{w: cmd.OutOrStdout(), opts: opts}
			for i, result := range selected {
				if i > 0 {
					fmt.Fprintln(v.w)
				}
				v.render(result)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&caseFilter, "case", "", "Only show cases whose id contains this value")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed cases")
	cmd.Flags().BoolVar(&opts.showTools, "tools", opts.showTools, "Include tool calls and their results under each turn")
	cmd.Flags().BoolVar(&opts.showRaw, "raw", false, "Include the judge's raw reply")
	cmd.Flags().IntVar(&opts.maxOutputLines, "max-output-lines", opts.maxOutputLines, "Maximum lines to display for a tool result")
	cmd.Flags().IntVar(&opts.maxLineLength, "max-line-length", opts.maxLineLength, "Maximum characters per line when formatting output")

	return cmd
}

type viewOptions struct {
	showTools      bool
	showRaw        bool
	maxOutputLines int
	maxLineLength  int
}

func failedResults(in []*eval.EvalResult) []*eval.EvalResult {
	out := make([]*eval.EvalResult, 0, len(in))
	for _, r := range in {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// transcriptView renders results as conversations.
type transcriptView struct {
	w    io.Writer
	opts viewOptions
}

func caseStatus(r *eval.EvalResult) (string, *color.Color) {
	switch {
	case r.AgentError != "":
		return "FAILED (aborted)", color.New(color.FgRed)
	case r.JudgeError != "":
		return "FAILED (judge error)", color.New(color.FgYellow)
	case !r.Passed:
		return "FAILED", color.New(color.FgRed)
	default:
		return "PASSED", color.New(color.FgGreen)
	}
}

func (v *transcriptView) render(r *eval.EvalResult) {
	_, _ = color.New(color.Bold).Fprintf(v.w, "Case: %s\n", r.CaseID)

	status, c := caseStatus(r)
	_, _ = c.Fprintf(v.w, "  Status: %s\n", status)
	if r.DurationMs > 0 {
		fmt.Fprintf(v.w, "  Duration: %dms\n", r.DurationMs)
	}
	v.field("Error", strings.TrimSpace(r.AgentError))
	v.field("Criteria", strings.TrimSpace(r.Criteria))

	if summary := summarizeToolCalls(r.Transcript); summary != "" {
		fmt.Fprintf(v.w, "  Tool calls: %s\n", summary)
	}

	if r.Transcript.Len() > 0 {
		fmt.Fprintln(v.w, "  Transcript:")
		for i, ex := range r.Transcript.Exchanges {
			v.exchange(i+1, ex)
		}
	}
	if missing := len(r.Turns) - r.Transcript.Len(); missing > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(v.w, "  %d turn(s) not run\n", missing)
	}

	if r.JudgeModel != "" {
		fmt.Fprintf(v.w, "  Judge: %s\n", r.JudgeModel)
	}
	v.field("Judge reason", r.JudgeReason)
	v.field("Judge error", r.JudgeError)
	if v.opts.showRaw {
		v.field("Judge reply", r.JudgeRaw)
	}
}

func (v *transcriptView) exchange(turn int, ex agent.Exchange) {
	const answerIndent = "               "

	_, _ = color.New(color.FgCyan).Fprintf(v.w, "    [%d] User: ", turn)
	fmt.Fprintln(v.w, wrapText(ex.User, v.opts.maxLineLength))

	if v.opts.showTools {
		for _, call := range ex.ToolCalls {
			v.toolCall(call)
		}
	}

	answer := indentContinuation(wrapText(ex.Agent, v.opts.maxLineLength), answerIndent)
	if agent.IsSystemError(ex.Agent) {
		_, _ = color.New(color.FgRed).Fprintf(v.w, "        Agent: %s\n", answer)
		return
	}
	fmt.Fprintf(v.w, "        Agent: %s\n", answer)
}

func (v *transcriptView) toolCall(call agent.ToolInvocation) {
	outcome := "ok"
	if call.IsError {
		outcome = "fail"
	}
	fmt.Fprintf(v.w, "        • %s(%s) (%s)\n", call.Name, truncateString(string(call.Arguments), v.opts.maxLineLength), outcome)

	payload := strings.TrimSpace(formatToolResult(call.Result))
	if payload == "" {
		return
	}
	for _, line := range strings.Split(limitMultiline(payload, v.opts.maxOutputLines, v.opts.maxLineLength), "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintf(v.w, "          %s\n", line)
		}
	}
}

// field prints label: value, or an indented block for multi-line values.
func (v *transcriptView) field(label, value string) {
	value = strings.TrimRight(value, "\n")
	if value == "" {
		return
	}
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(v.w, "  %s: %s\n", label, value)
		return
	}

	fmt.Fprintf(v.w, "  %s:\n", label)
	for _, line := range mergeContinuationLines(strings.Split(value, "\n")) {
		fmt.Fprintf(v.w, "    %s\n", line)
	}
}

func formatToolResult(result any) string {
	if result == nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}

// summarizeToolCalls renders per-tool call counts, e.g. "lookup_order:2 ok, lookup_order:1 fail".
func summarizeToolCalls(transcript *agent.Transcript) string {
	if transcript == nil {
		return ""
	}

	type tally struct{ ok, fail int }
	byTool := make(map[string]*tally)
	for _, ex := range transcript.Exchanges {
		for _, call := range ex.ToolCalls {
			t, seen := byTool[call.Name]
			if !seen {
				t = &tally{}
				byTool[call.Name] = t
			}
			if call.IsError {
				t.fail++
			} else {
				t.ok++
			}
		}
	}

	names := make([]string, 0, len(byTool))
	for name := range byTool {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		t := byTool[name]
		if t.ok > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d ok", name, t.ok))
		}
		if t.fail > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d fail", name, t.fail))
		}
	}
	return strings.Join(parts, ", ")
}

// limitMultiline wraps each line to maxLineLength and keeps at most maxLines
// source lines. Zero disables either limit.
func limitMultiline(raw string, maxLines, maxLineLength int) string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	var dropped int
	if maxLines > 0 && len(lines) > maxLines {
		dropped = len(lines) - maxLines
		lines = lines[:maxLines]
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(wrapText(line, maxLineLength))
	}
	if dropped > 0 {
		fmt.Fprintf(&b, "\n… (+%d lines)", dropped)
	}
	return b.String()
}

// truncateString shortens s to at most max runes, ending with an ellipsis.
func truncateString(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return string(runes[:1])
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

func indentContinuation(block, indent string) string {
	return strings.ReplaceAll(block, "\n", "\n"+indent)
}

// wrapText breaks s on word boundaries so no line exceeds width, unless a
// single word is longer.
func wrapText(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}

	var b strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(s) {
		switch {
		case lineLen == 0:
		case lineLen+1+len(word) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

// mergeContinuationLines drops blank lines and folds lines that start with
// closing punctuation into the line before them.
func mergeContinuationLines(lines []string) []string {
	var merged []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n := len(merged); n > 0 && strings.ContainsRune(`'").:`, rune(line[0])) {
			merged[n-1] += " " + line
			continue
		}
		merged = append(merged, line)
	}
	return merged
}
