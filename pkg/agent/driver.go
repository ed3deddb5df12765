package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// AbortError is returned when a conversation stopped before every turn ran.
// The transcript returned alongside it holds the turns that did complete.
type AbortError struct {
	CaseID string
	Turn   int
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("case %q aborted at turn %d: %v", e.CaseID, e.Turn+1, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// TurnHook observes each completed turn. turn is 1-based.
type TurnHook func(turn int, ex Exchange)

// Driver plays a scripted list of turns through a fresh session.
type Driver struct {
	model    Model
	executor *Executor
	onTurn   TurnHook
}

type DriverOption func(*Driver)

// OnTurn registers a hook called after every completed turn.
func OnTurn(hook TurnHook) DriverOption {
	return func(d *Driver) { d.onTurn = hook }
}

func NewDriver(model Model, executor *Executor, opts ...DriverOption) *Driver {
	d := &Driver{model: model, executor: executor}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunCase opens a new session and runs turns in order. On success the
// transcript has exactly one exchange per turn.
func (d *Driver) RunCase(ctx context.Context, caseID string, turns []string) (transcript *Transcript, err error) {
	logger := zerolog.Ctx(ctx).With().Str("case", caseID).Logger()
	ctx = logger.WithContext(ctx)

	transcript = &Transcript{CaseID: caseID, Exchanges: make([]Exchange, 0, len(turns))}

	defer func() {
		if p := recover(); p != nil {
			err = &AbortError{CaseID: caseID, Turn: transcript.Len(), Err: fmt.Errorf("panic: %v", p)}
			logger.Error().Err(err).Msg("conversation aborted")
		}
	}()

	session, err := d.model.NewSession(ctx)
	if err != nil {
		return transcript, &AbortError{CaseID: caseID, Turn: 0, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	transcript.SessionID = session.ID()

	for i, turn := range turns {
		if err := ctx.Err(); err != nil {
			return transcript, &AbortError{CaseID: caseID, Turn: i, Err: err}
		}

		logger.Debug().Int("turn", i+1).Str("user", turn).Msg("sending turn")
		ex := d.executor.ExecuteTurn(ctx, session, turn)
		transcript.Append(ex)
		logger.Debug().Int("turn", i+1).Str("agent", ex.Agent).Msg("turn complete")
		if d.onTurn != nil {
			d.onTurn(i+1, ex)
		}
	}

	return transcript, nil
}
