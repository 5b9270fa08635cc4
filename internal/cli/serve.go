package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server communicates over stdio using JSON-RPC, so stdout is reserved
for protocol traffic and all logging goes to stderr.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "sdkdocs": {
        "command": "/path/to/sdkdocs",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = server.Close() }()

	return server.Serve(ctx)
}
