package config

import (
	"fmt"
	"strings"

	"github.com/bradyops/brady/pkg/remote"
)

// Scope names the part of the configuration a command depends on.
type Scope string

const (
	ScopeAgent  Scope = "agent"
	ScopeJudge  Scope = "judge"
	ScopeServer Scope = "server"
	ScopeSmoke  Scope = "smoke"
)

// Error reports every missing or invalid setting at once.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Validate checks the settings needed by the given scopes.
func (c *Config) Validate(scopes ...Scope) error {
	var problems []string

	for _, scope := range scopes {
		switch scope {
		case ScopeAgent:
			problems = append(problems, c.validateModel("agent", c.Agent)...)
			if c.Run.Concurrency < 1 {
				problems = append(problems, "run.concurrency must be at least 1")
			}
		case ScopeJudge:
			problems = append(problems, c.validateModel("judge", c.Judge)...)
		case ScopeServer:
			if c.Server.Port <= 0 || c.Server.Port > 65535 {
				problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
			}
			if c.Server.MaxSessions < 1 {
				problems = append(problems, "server.maxSessions must be at least 1")
			}
		case ScopeSmoke:
			if c.GCP.Location == "" {
				problems = append(problems, "missing gcp.location (REGION)")
			}
			if c.GCP.AgentID == "" {
				problems = append(problems, "missing gcp.agentID (AGENT_ID)")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown scope %q", scope))
		}
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

func (c *Config) validateModel(prefix string, m ModelConfig) []string {
	var problems []string

	if m.Model == "" {
		problems = append(problems, fmt.Sprintf("missing %s.model", prefix))
	}

	switch m.Auth {
	case "", remote.AuthAPIKey:
		if m.APIKey == "" {
			problems = append(problems, fmt.Sprintf("missing %s.apiKey", prefix))
		}
		if m.BaseURL == "" {
			problems = append(problems, fmt.Sprintf("missing %s.baseURL", prefix))
		}
	case remote.AuthGoogle:
		if m.BaseURL == "" && (c.GCP.ProjectID == "" || c.GCP.Location == "") {
			problems = append(problems, fmt.Sprintf("missing %s.baseURL or gcp.projectID and gcp.location", prefix))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown %s.auth %q", prefix, m.Auth))
	}

	return problems
}
