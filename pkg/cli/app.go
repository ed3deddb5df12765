package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/config"
	"github.com/bradyops/brady/pkg/mcpserver"
	"github.com/bradyops/brady/pkg/remote"
	"github.com/bradyops/brady/pkg/tools"
)

// loadTools returns the built-in registry, or the tools served by an MCP
// endpoint when toolsURL is set. The returned close func is never nil.
func loadTools(ctx context.Context, toolsURL string) (*tools.Registry, func(), error) {
	if toolsURL == "" {
		return tools.Default(), func() {}, nil
	}

	client, err := mcpserver.Dial(ctx, toolsURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close MCP session")
		}
	}

	registry, err := client.Registry(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("url", toolsURL).Strs("tools", registry.Names()).Msg("using remote tools")
	return registry, closeFn, nil
}

// newAgentModel connects to the configured agent endpoint and advertises
// every tool in registry.
func newAgentModel(ctx context.Context, cfg *config.Config, registry *tools.Registry) (*agent.OpenAIModel, error) {
	client, err := remote.NewOpenAIClient(ctx, cfg.AgentEndpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to create agent client: %w", err)
	}

	return agent.NewOpenAIModel(client, cfg.Agent.Model, registry,
		agent.WithInstruction(cfg.Agent.Instruction),
		agent.WithTemperature(cfg.Agent.Temperature),
		agent.WithRetryPolicy(cfg.RetryPolicy()),
	)
}
