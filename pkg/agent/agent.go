// Package agent drives conversations with the logistics agent: sessions on
// a hosted model, turn execution with tool calls, and scripted multi-turn
// conversations.
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bradyops/brady/pkg/tools"
)

// Reply is one response from the agent runtime: final text, tool calls, or
// both.
type Reply struct {
	Text      string
	ToolCalls []tools.Call
}

// Session is a stateful conversation with the agent. A session is owned by a
// single caller and is not safe for concurrent use.
type Session interface {
	ID() string
	Send(ctx context.Context, text string) (*Reply, error)
	SendToolResults(ctx context.Context, results []tools.Result) (*Reply, error)
}

// Model opens isolated sessions on an agent runtime.
type Model interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
}

// ToolInvocation records a tool call made during a turn.
type ToolInvocation struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result"`
	IsError   bool            `json:"isError,omitempty"`
}

// Exchange is a single user turn and the agent's final answer to it.
type Exchange struct {
	User      string           `json:"user"`
	Agent     string           `json:"agent"`
	ToolCalls []ToolInvocation `json:"toolCalls,omitempty"`
}

// Transcript is the ordered record of a conversation. Exchanges are only
// ever appended.
type Transcript struct {
	CaseID    string     `json:"caseId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Exchanges []Exchange `json:"exchanges"`
}

func (t *Transcript) Append(e Exchange) {
	t.Exchanges = append(t.Exchanges, e)
}

func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Exchanges)
}

// String renders the transcript as "User: ...\nAgent: ...\n" lines.
func (t *Transcript) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, e := range t.Exchanges {
		b.WriteString("User: ")
		b.WriteString(e.User)
		b.WriteString("\nAgent: ")
		b.WriteString(e.Agent)
		b.WriteString("\n")
	}
	return b.String()
}
