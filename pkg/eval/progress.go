package eval

// ProgressEventType identifies a point in an evaluation run.
type ProgressEventType string

const (
	EventEvalStart    ProgressEventType = "eval_start"
	EventCaseStart    ProgressEventType = "case_start"
	EventTurnComplete ProgressEventType = "turn_complete"
	EventCaseJudging  ProgressEventType = "case_judging"
	EventCaseComplete ProgressEventType = "case_complete"
	EventEvalComplete ProgressEventType = "eval_complete"
)

// ProgressEvent is reported to a ProgressCallback as a run advances.
type ProgressEvent struct {
	Type    ProgressEventType
	Message string
	// Case is set for every case-level event
	Case *EvalResult
	// Turn is the 1-based turn number for EventTurnComplete
	Turn int
	// Run is set for EventEvalComplete
	Run *RunResult
}

// ProgressCallback receives progress events. Calls are serialized by the
// runner, even when cases run in parallel.
type ProgressCallback func(event ProgressEvent)

// NoopProgressCallback discards events.
func NoopProgressCallback(ProgressEvent) {}
