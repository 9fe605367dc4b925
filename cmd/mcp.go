package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opsgate/opsgate/internal/mcpserver"
)

const version = "0.2.0"

func init() {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the gateway and playbook engine as MCP tools over stdio",
		Long: `Expose execute_command, interpret, and the playbook tools to MCP
clients over stdin/stdout. Every tool call passes through the same policy
engine as the CLI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.startAllGateways()

			srv := mcpserver.New(version, a.gateways, a.executor, a.catalog)
			return srv.ServeStdio()
		},
	}
	rootCmd.AddCommand(mcpCmd)
}
