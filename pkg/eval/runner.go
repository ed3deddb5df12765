package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/dataset"
	"github.com/bradyops/brady/pkg/llmjudge"
)

type EvalResult struct {
	CaseID      string            `json:"caseId"`
	Turns       []string          `json:"turns"`
	Criteria    string            `json:"criteria"`
	Passed      bool              `json:"passed"`
	Transcript  *agent.Transcript `json:"transcript"`
	AgentError  string            `json:"agentError,omitempty"` // set when the conversation was aborted
	JudgeModel  string            `json:"judgeModel,omitempty"`
	JudgeReason string            `json:"judgeReason,omitempty"`
	JudgeRaw    string            `json:"judgeRaw,omitempty"`
	JudgeError  string            `json:"judgeError,omitempty"`
	DurationMs  int64             `json:"durationMs"`
}

// ToolCallCount returns the number of tool calls made across all turns.
func (r *EvalResult) ToolCallCount() int {
	if r.Transcript == nil {
		return 0
	}
	n := 0
	for _, ex := range r.Transcript.Exchanges {
		n += len(ex.ToolCalls)
	}
	return n
}

// RunResult aggregates a full evaluation run. Results keep dataset order.
type RunResult struct {
	Dataset    string        `json:"dataset"`
	AgentModel string        `json:"agentModel,omitempty"`
	Results    []*EvalResult `json:"results"`
	Passed     int           `json:"passed"`
	Total      int           `json:"total"`
	Score      int           `json:"score"`
}

// Score returns round(100*passed/total). A run with any failure never
// reports 100, so a score of 100 always means every case passed.
func Score(passed, total int) int {
	if total <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(passed) / float64(total)))
	if score == 100 && passed < total {
		score = 99
	}
	return score
}

// ExitCode is 0 when the score is 100 and 1 otherwise.
func (r *RunResult) ExitCode() int {
	if r.Total > 0 && r.Score == 100 {
		return 0
	}
	return 1
}

func (r *RunResult) tally() {
	r.Total = len(r.Results)
	r.Passed = 0
	for _, res := range r.Results {
		if res != nil && res.Passed {
			r.Passed++
		}
	}
	r.Score = Score(r.Passed, r.Total)
}

type EvalRunner interface {
	Run(ctx context.Context, ds *dataset.Dataset) (*RunResult, error)
	RunWithProgress(ctx context.Context, ds *dataset.Dataset, callback ProgressCallback) (*RunResult, error)
}

type evalRunner struct {
	model         agent.Model
	tools         agent.ToolInvoker
	judge         llmjudge.LLMJudge
	concurrency   int
	maxToolRounds int
}

var _ EvalRunner = &evalRunner{}

type RunnerOption func(*evalRunner)

// WithConcurrency runs up to n cases at once. Turns within a case are
// always sequential.
func WithConcurrency(n int) RunnerOption {
	return func(r *evalRunner) { r.concurrency = n }
}

// WithMaxToolRounds bounds tool-call round trips per turn.
func WithMaxToolRounds(n int) RunnerOption {
	return func(r *evalRunner) { r.maxToolRounds = n }
}

// NewRunner creates an EvalRunner. The judge must be a separate model from
// the agent under test.
func NewRunner(model agent.Model, tools agent.ToolInvoker, judge llmjudge.LLMJudge, opts ...RunnerOption) (EvalRunner, error) {
	if model == nil {
		return nil, fmt.Errorf("agent model cannot be nil")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if judge == nil {
		return nil, fmt.Errorf("judge cannot be nil")
	}

	r := &evalRunner{
		model:       model,
		tools:       tools,
		judge:       judge,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}

	return r, nil
}

func (r *evalRunner) Run(ctx context.Context, ds *dataset.Dataset) (*RunResult, error) {
	return r.RunWithProgress(ctx, ds, NoopProgressCallback)
}

// RunWithProgress runs every case and judges its transcript. Case failures
// never stop the run; the only error returned is cancellation of ctx, along
// with the results gathered so far.
func (r *evalRunner) RunWithProgress(ctx context.Context, ds *dataset.Dataset, callback ProgressCallback) (*RunResult, error) {
	if ds == nil {
		return nil, &dataset.Error{Err: errors.New("dataset cannot be nil")}
	}
	if err := ds.Validate(); err != nil {
		return nil, &dataset.Error{Path: ds.Metadata.Name, Err: err}
	}
	progress := newProgressEmitter(callback)

	logger := zerolog.Ctx(ctx).With().Str("dataset", ds.Metadata.Name).Logger()
	ctx = logger.WithContext(ctx)

	run := &RunResult{
		Dataset:    ds.Metadata.Name,
		AgentModel: r.model.Name(),
		Results:    make([]*EvalResult, len(ds.Cases)),
	}

	progress.emit(ProgressEvent{
		Type:    EventEvalStart,
		Message: fmt.Sprintf("Running %d cases", len(ds.Cases)),
	})

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, tc := range ds.Cases {
		g.Go(func() error {
			run.Results[i] = r.runCase(ctx, tc, progress)
			return nil
		})
	}
	_ = g.Wait()

	run.tally()
	logger.Info().Int("passed", run.Passed).Int("total", run.Total).Int("score", run.Score).Msg("evaluation complete")

	progress.emit(ProgressEvent{
		Type:    EventEvalComplete,
		Message: fmt.Sprintf("Final score: %d%%", run.Score),
		Run:     run,
	})

	return run, ctx.Err()
}

func (r *evalRunner) runCase(ctx context.Context, tc dataset.TestCase, progress *progressEmitter) *EvalResult {
	start := time.Now()
	result := &EvalResult{
		CaseID:   tc.ID,
		Turns:    tc.Input,
		Criteria: tc.Criteria,
	}

	progress.emit(ProgressEvent{
		Type:    EventCaseStart,
		Message: fmt.Sprintf("Starting case: %s", tc.ID),
		Case:    result,
	})

	driver := agent.NewDriver(r.model, agent.NewExecutor(r.tools, r.maxToolRounds),
		agent.OnTurn(func(turn int, ex agent.Exchange) {
			progress.emit(ProgressEvent{
				Type:    EventTurnComplete,
				Message: ex.Agent,
				Case:    result,
				Turn:    turn,
			})
		}))

	transcript, err := driver.RunCase(ctx, tc.ID, tc.Input)
	result.Transcript = transcript
	if err != nil {
		// an aborted conversation is not judged
		result.AgentError = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		progress.emit(ProgressEvent{
			Type:    EventCaseComplete,
			Message: fmt.Sprintf("Aborted case: %s", tc.ID),
			Case:    result,
		})
		return result
	}

	progress.emit(ProgressEvent{
		Type:    EventCaseJudging,
		Message: fmt.Sprintf("Judging case: %s", tc.ID),
		Case:    result,
	})

	verdict := r.judge.Grade(ctx, transcript, tc.Criteria)
	result.JudgeModel = r.judge.ModelName()
	result.Passed = verdict.Passed
	result.JudgeReason = verdict.Rationale
	result.JudgeRaw = verdict.Raw
	result.JudgeError = verdict.Error
	result.DurationMs = time.Since(start).Milliseconds()

	progress.emit(ProgressEvent{
		Type:    EventCaseComplete,
		Message: fmt.Sprintf("Completed case: %s (passed: %v)", tc.ID, result.Passed),
		Case:    result,
	})

	return result
}

// progressEmitter serializes one run's callback across its concurrent cases.
// Each RunWithProgress call owns its own emitter.
type progressEmitter struct {
	mu sync.Mutex
	cb ProgressCallback
}

func newProgressEmitter(cb ProgressCallback) *progressEmitter {
	if cb == nil {
		cb = NoopProgressCallback
	}
	return &progressEmitter{cb: cb}
}

func (p *progressEmitter) emit(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb(event)
}
