package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/pharmaflow/pharmaflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document listing, analysis, chat and literature search as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, client, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger.Info("pharmaflow MCP server started on stdio", zap.String("backend", client.BaseURL()))

		srv := mcpserver.NewServer(client, logger)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
