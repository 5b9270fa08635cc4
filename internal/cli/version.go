package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sdkdocs version %s\n", version)
		cmd.Printf("SQLite driver: %s (%s build)\n", storage.DriverName, storage.BuildMode)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
