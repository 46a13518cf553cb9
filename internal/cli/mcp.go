package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	svmcp "github.com/opensonata/sonata-verify/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the sonata-verify MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sonata-verify MCP server on stdio",
	Long: `Start the sonata-verify MCP server on stdio transport.

The server exposes the verification as MCP tools: verify_test_signal runs
every check for the activity after a unix timestamp, get_roster returns the
expected dx nodes and the test signal window, get_alerts evaluates the run
history. Each verification opens its own database connection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol; diagnostics stay on stderr.
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		srv := svmcp.NewServer(app, app.Config, appVersion)

		if err := srv.Run(cmd.Context()); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
