package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bradyops/brady/pkg/config"
	"github.com/bradyops/brady/pkg/util"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	envFile    string
	logFormat  string
	verbose    bool
}

// loadConfig reads configuration, letting the named flags of cmd override
// the matching config keys. flagKeys maps config key to flag name.
func (o *globalOptions) loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, error) {
	opts := config.Options{
		ConfigFile: o.configFile,
		EnvFile:    o.envFile,
		Flags:      make(map[string]*pflag.Flag, len(flagKeys)),
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			opts.Flags[key] = f
		}
	}
	return config.Load(opts)
}

// NewRootCmd creates the root brady command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "brady",
		Short: "Brady logistics assistant",
		Long: `brady serves the Brady logistics assistant and evaluates it.

It exposes the assistant over HTTP, publishes its order tools over MCP,
smoke-tests a deployed agent, and runs scripted multi-turn evaluations
graded by a judge model.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := util.NewLogger(cmd.ErrOrStderr(), opts.logFormat, opts.verbose)
			if err != nil {
				return err
			}
			ctx := logger.WithContext(cmd.Context())
			ctx = util.WithVerbose(ctx, opts.verbose)
			cmd.SetContext(ctx)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: ./brady.yaml or $HOME/.brady/brady.yaml)")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Environment file loaded at startup")
	flags.StringVar(&opts.logFormat, "log-format", util.LogFormatConsole, "Log format (console, json)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(NewEvalCmd(opts))
	rootCmd.AddCommand(NewServeCmd(opts))
	rootCmd.AddCommand(NewSmokeCmd(opts))
	rootCmd.AddCommand(NewMCPCmd(opts))

	return rootCmd
}

// NewEvalCmd groups the evaluation commands
func NewEvalCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run evaluations and inspect their results",
	}

	cmd.AddCommand(NewRunCmd(opts))
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewViewCmd())
	cmd.AddCommand(NewDiffCmd())
	cmd.AddCommand(NewSummaryCmd())

	return cmd
}

// Execute runs the root command until it completes or the process is
// interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
