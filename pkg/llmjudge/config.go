package llmjudge

import (
	"context"
	"fmt"

	"k8s.io/utils/ptr"

	"github.com/bradyops/brady/pkg/remote"
)

type LLMJudgeConfig struct {
	Endpoint remote.Endpoint
	// Temperature defaults to 0 for repeatable grading
	Temperature *float64
	Retry       remote.Policy
}

// NewFromConfig builds a Judge with its own client for the configured endpoint.
func NewFromConfig(ctx context.Context, cfg LLMJudgeConfig) (*Judge, error) {
	client, err := remote.NewOpenAIClient(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge client: %w", err)
	}

	return NewJudge(client, cfg.Endpoint.Model, ptr.Deref(cfg.Temperature, 0), cfg.Retry)
}
