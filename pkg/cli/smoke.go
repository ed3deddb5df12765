package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/config"
	"github.com/bradyops/brady/pkg/remote"
	"github.com/bradyops/brady/pkg/smoke"
)

const (
	smokeTargetEngine = "engine"
	smokeTargetHTTP   = "http"
)

// NewSmokeCmd creates the smoke command
func NewSmokeCmd(opts *globalOptions) *cobra.Command {
	var target, url, userID string

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Send live test queries to a deployed agent",
		Long: `Send a fixed set of queries to a deployed agent and print the answers
as they stream in.

The default target is the hosted agent engine named by gcp.agentID
(AGENT_ID) in gcp.location (REGION), using application default
credentials. Use --target http --url to check a running 'brady serve'
instead. Answers are not graded; the command fails only when a query
cannot be completed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var t smoke.Target
			switch target {
			case smokeTargetEngine:
				cfg, err := opts.loadConfig(cmd, nil)
				if err != nil {
					return err
				}
				if err := cfg.Validate(config.ScopeSmoke); err != nil {
					return err
				}
				client, err := remote.GoogleHTTPClient(ctx)
				if err != nil {
					return err
				}
				engine := smoke.NewEngineTarget(client, cfg.GCP.Location, cfg.GCP.AgentID)
				if userID != "" {
					engine.UserID = userID
				}
				t = engine
			case smokeTargetHTTP:
				if url == "" {
					return fmt.Errorf("--url is required for --target %s", smokeTargetHTTP)
				}
				t = smoke.NewServiceTarget(nil, url)
			default:
				return fmt.Errorf("unknown target %q (want %s or %s)", target, smokeTargetEngine, smokeTargetHTTP)
			}

			report, err := smoke.Run(ctx, t, smoke.DefaultScenarios(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed := report.Failed(); failed > 0 {
				cmd.SilenceErrors = true
				return fmt.Errorf("%d scenarios failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", smokeTargetEngine, "What to query (engine, http)")
	cmd.Flags().StringVar(&url, "url", "", "URL of a running brady service, for --target http")
	cmd.Flags().StringVar(&userID, "user-id", smoke.DefaultUserID, "User id sent with engine queries")

	return cmd
}
