package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
)

var resetFailedCmd = &cobra.Command{
	Use:   "reset-failed",
	Short: "Queue failed embeddings for retry on the next indexing run",
	Args:  cobra.NoArgs,
	RunE:  runResetFailed,
}

func init() {
	rootCmd.AddCommand(resetFailedCmd)
}

func runResetFailed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := openPipeline(ctx, indexer.Config{}, false)
	if err != nil {
		return err
	}
	defer p.close()

	count, err := p.tracker.ResetFailed(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		cmd.Println("No failed embeddings.")
		return nil
	}
	cmd.Printf("Moved %d embedding(s) back to pending.\n", count)
	return nil
}
