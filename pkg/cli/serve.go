package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/config"
	"github.com/bradyops/brady/pkg/server"
)

// NewServeCmd creates the serve command
func NewServeCmd(opts *globalOptions) *cobra.Command {
	var toolsURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Long: `Serve the assistant over HTTP.

POST / with {"message": "..."} returns {"response": "...", "session_id": "..."}.
Send the session_id back to continue the same conversation.
GET /health and GET /metrics are also served.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.loadConfig(cmd, map[string]string{
				"server.host": "host",
				"server.port": "port",
			})
			if err != nil {
				return err
			}
			if err := cfg.Validate(config.ScopeAgent, config.ScopeServer); err != nil {
				return err
			}

			registry, closeTools, err := loadTools(ctx, toolsURL)
			if err != nil {
				return err
			}
			defer closeTools()

			model, err := newAgentModel(ctx, cfg, registry)
			if err != nil {
				return err
			}

			srv, err := server.New(model, registry, server.Config{
				Host:          cfg.Server.Host,
				Port:          cfg.Server.Port,
				MaxSessions:   cfg.Server.MaxSessions,
				MaxToolRounds: cfg.Run.MaxToolRounds,
				RateLimit: server.RateLimitConfig{
					RequestsPerMinute: cfg.Server.RequestsPerMinute,
					Burst:             cfg.Server.Burst,
				},
			}, server.WithLogger(*zerolog.Ctx(ctx)))
			if err != nil {
				return err
			}

			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "Address to listen on")
	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on (env PORT)")
	cmd.Flags().StringVar(&toolsURL, "tools-url", "", "Use the tools served by this MCP endpoint instead of the built-in ones")

	return cmd
}
