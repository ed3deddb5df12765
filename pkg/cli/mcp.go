package cli

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bradyops/brady/pkg/mcpserver"
	"github.com/bradyops/brady/pkg/tools"
)

// Version is reported to MCP clients.
var Version = "dev"

// NewMCPCmd creates the mcp command
func NewMCPCmd(_ *globalOptions) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the order tools over MCP",
		Long: `Serve lookup_order and generate_random_order over the Model Context
Protocol (streamable HTTP, at /mcp).

Other brady commands can use these tools through --tools-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcpserver.NewServer(tools.Default(), Version)
			return mcpserver.Serve(cmd.Context(), net.JoinHostPort(host, strconv.Itoa(port)), s)
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Address to listen on")
	cmd.Flags().IntVar(&port, "port", 8081, "Port to listen on")

	return cmd
}
