package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bradyops/brady/pkg/tools"
)

// scriptedSession replays canned replies and records what it was sent.
type scriptedSession struct {
	id          string
	replies     []*Reply
	errs        []error
	sent        []string
	toolResults [][]tools.Result
	calls       int
}

func (s *scriptedSession) ID() string { return s.id }

func (s *scriptedSession) next() (*Reply, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.replies) {
		return &Reply{Text: fmt.Sprintf("reply %d", i)}, nil
	}
	return s.replies[i], nil
}

func (s *scriptedSession) Send(_ context.Context, text string) (*Reply, error) {
	s.sent = append(s.sent, text)
	return s.next()
}

func (s *scriptedSession) SendToolResults(_ context.Context, results []tools.Result) (*Reply, error) {
	s.toolResults = append(s.toolResults, results)
	return s.next()
}

func lookupCall(id, order string) tools.Call {
	return tools.Call{ID: id, Name: tools.LookupOrderName, Arguments: json.RawMessage(fmt.Sprintf(`{"order_id":%q}`, order))}
}

func TestExecuteTurn(t *testing.T) {
	remoteErr := errors.New("503 service unavailable")

	tt := map[string]struct {
		session        *scriptedSession
		maxRounds      int
		wantAgent      string
		wantToolCalls  int
		wantToolRounds int
		check          func(t *testing.T, s *scriptedSession, ex Exchange)
	}{
		"plain text reply": {
			session:   &scriptedSession{replies: []*Reply{{Text: "Hello! How can I help?"}}},
			wantAgent: "Hello! How can I help?",
		},
		"tool call then final text": {
			session: &scriptedSession{replies: []*Reply{
				{ToolCalls: []tools.Call{lookupCall("c1", "ORD-123")}},
				{Text: "Your order has shipped."},
			}},
			wantAgent:      "Your order has shipped.",
			wantToolCalls:  1,
			wantToolRounds: 1,
			check: func(t *testing.T, s *scriptedSession, ex Exchange) {
				res := s.toolResults[0][0]
				assert.Equal(t, "c1", res.CallID)
				assert.False(t, res.IsError)
				payload := res.Payload.(map[string]any)
				order := payload["result"].(tools.Order)
				assert.Equal(t, "Shipped", order.Status)
				assert.Equal(t, tools.LookupOrderName, ex.ToolCalls[0].Name)
			},
		},
		"unknown tool is fed back as error payload": {
			session: &scriptedSession{replies: []*Reply{
				{ToolCalls: []tools.Call{{ID: "c1", Name: "cancel_order"}}},
				{Text: "Sorry, I can't do that."},
			}},
			wantAgent:      "Sorry, I can't do that.",
			wantToolCalls:  1,
			wantToolRounds: 1,
			check: func(t *testing.T, s *scriptedSession, ex Exchange) {
				res := s.toolResults[0][0]
				assert.True(t, res.IsError)
				assert.Contains(t, res.Payload.(map[string]any)["error"], "tool not found")
				assert.True(t, ex.ToolCalls[0].IsError)
			},
		},
		"multiple calls in one reply are answered together": {
			session: &scriptedSession{replies: []*Reply{
				{ToolCalls: []tools.Call{lookupCall("c1", "ORD-123"), lookupCall("c2", "ORD-999")}},
				{Text: "One found, one missing."},
			}},
			wantAgent:      "One found, one missing.",
			wantToolCalls:  2,
			wantToolRounds: 1,
			check: func(t *testing.T, s *scriptedSession, _ Exchange) {
				require.Len(t, s.toolResults[0], 2)
				missing := s.toolResults[0][1].Payload.(map[string]any)["result"]
				assert.Equal(t, map[string]any{"error": tools.OrderNotFoundMessage}, missing)
			},
		},
		"multi hop tool calls": {
			session: &scriptedSession{replies: []*Reply{
				{ToolCalls: []tools.Call{lookupCall("c1", "ORD-123")}},
				{ToolCalls: []tools.Call{lookupCall("c2", "ORD-456")}},
				{Text: "Both orders checked."},
			}},
			wantAgent:      "Both orders checked.",
			wantToolCalls:  2,
			wantToolRounds: 2,
		},
		"tool round limit": {
			session: &scriptedSession{replies: []*Reply{
				{ToolCalls: []tools.Call{lookupCall("c1", "ORD-123")}},
				{ToolCalls: []tools.Call{lookupCall("c2", "ORD-123")}},
				{ToolCalls: []tools.Call{lookupCall("c3", "ORD-123")}},
			}},
			maxRounds:      2,
			wantAgent:      "System Error: tool call limit exceeded",
			wantToolCalls:  2,
			wantToolRounds: 2,
		},
		"remote failure on send": {
			session:   &scriptedSession{errs: []error{remoteErr}},
			wantAgent: "System Error: 503 service unavailable",
		},
		"remote failure while returning tool results": {
			session: &scriptedSession{
				replies: []*Reply{{ToolCalls: []tools.Call{lookupCall("c1", "ORD-123")}}},
				errs:    []error{nil, remoteErr},
			},
			wantAgent:      "System Error: 503 service unavailable",
			wantToolCalls:  1,
			wantToolRounds: 1,
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			exec := NewExecutor(tools.Default(), tc.maxRounds)

			ex := exec.ExecuteTurn(context.Background(), tc.session, "Where is ORD-123?")

			assert.Equal(t, "Where is ORD-123?", ex.User)
			assert.Equal(t, tc.wantAgent, ex.Agent)
			assert.Len(t, ex.ToolCalls, tc.wantToolCalls)
			assert.Len(t, tc.session.toolResults, tc.wantToolRounds)
			assert.Equal(t, []string{"Where is ORD-123?"}, tc.session.sent)
			if tc.check != nil {
				tc.check(t, tc.session, ex)
			}
		})
	}
}

func TestNewExecutorDefaultsMaxRounds(t *testing.T) {
	assert.Equal(t, DefaultMaxToolRounds, NewExecutor(tools.Default(), 0).maxRounds)
	assert.Equal(t, 3, NewExecutor(tools.Default(), 3).maxRounds)
}

func TestSystemError(t *testing.T) {
	assert.Equal(t, "System Error: boom", SystemError(errors.New("boom")))
}

func TestIsSystemError(t *testing.T) {
	assert.True(t, IsSystemError(SystemError(ErrToolRoundsExceeded)))
	assert.False(t, IsSystemError("ORD-123 has shipped."))
}
