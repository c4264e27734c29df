package ghmcp

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	platformcmd "github.com/grasshoppermcp/gateway/internal/platform/cmd"
)

// NewRootCmd returns the ghmcp command tree. Running the root without a
// subcommand serves.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   platformcmd.ServiceGateway,
		Short: "Serves canvas tools over MCP on an HTTP endpoint",
		Long: `ghmcp accepts JSON-RPC requests over HTTP POST, relays each one to a
protocol engine through an in-memory duplex stream and returns the
engine's response.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	serve := newServeCmd()
	root.AddCommand(serve, newVersionCmd())
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		flagValues Config
		configFile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), flagValues, configFile)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "YAML, TOML or JSON config file")
	bindFlags(cmd.Flags(), &flagValues)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", platformcmd.ServiceGateway, Version, runtime.Version())
		},
	}
}
