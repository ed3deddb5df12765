package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bradyops/brady/pkg/tools"
)

// DefaultMaxToolRounds bounds how many tool-call round trips a single turn
// may take.
const DefaultMaxToolRounds = 5

// ErrToolRoundsExceeded is reported when the agent keeps requesting tools
// past the configured limit.
var ErrToolRoundsExceeded = errors.New("tool call limit exceeded")

// ToolInvoker runs a tool call and always returns a result.
type ToolInvoker interface {
	Invoke(ctx context.Context, call tools.Call) tools.Result
}

// Executor runs one user turn against a session, resolving any tool calls
// the agent makes along the way.
type Executor struct {
	tools     ToolInvoker
	maxRounds int
}

// NewExecutor creates an executor. maxRounds <= 0 uses DefaultMaxToolRounds.
func NewExecutor(invoker ToolInvoker, maxRounds int) *Executor {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	return &Executor{tools: invoker, maxRounds: maxRounds}
}

// ExecuteTurn sends userText and returns the exchange with the agent's final
// text. Remote failures never escape: they become "System Error: ..." text.
func (e *Executor) ExecuteTurn(ctx context.Context, session Session, userText string) Exchange {
	logger := zerolog.Ctx(ctx)
	ex := Exchange{User: userText}

	reply, err := session.Send(ctx, userText)
	if err != nil {
		logger.Error().Err(err).Msg("agent call failed")
		ex.Agent = SystemError(err)
		return ex
	}

	for round := 0; len(reply.ToolCalls) > 0; round++ {
		if round >= e.maxRounds {
			logger.Warn().Int("rounds", round).Msg("agent exceeded tool call limit")
			ex.Agent = SystemError(ErrToolRoundsExceeded)
			return ex
		}

		results := make([]tools.Result, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			res := e.tools.Invoke(ctx, call)
			results = append(results, res)
			ex.ToolCalls = append(ex.ToolCalls, ToolInvocation{
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    res.Payload,
				IsError:   res.IsError,
			})
		}

		reply, err = session.SendToolResults(ctx, results)
		if err != nil {
			logger.Error().Err(err).Msg("agent call failed while returning tool results")
			ex.Agent = SystemError(err)
			return ex
		}
	}

	ex.Agent = reply.Text
	return ex
}

// SystemErrorPrefix starts every answer that stands in for a failed turn.
const SystemErrorPrefix = "System Error: "

// SystemError renders a failure as the agent's answer text.
func SystemError(err error) string {
	return SystemErrorPrefix + err.Error()
}

// IsSystemError reports whether an answer was produced by SystemError.
func IsSystemError(answer string) bool {
	return strings.HasPrefix(answer, SystemErrorPrefix)
}
