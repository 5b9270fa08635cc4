package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored document, chunk, and embedding state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	p, err := openPipeline(ctx, indexer.Config{}, false)
	if err != nil {
		return err
	}
	defer p.close()

	docs, err := p.store.Scan(ctx, storage.PrefixDoc)
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}
	chunks, err := p.store.Scan(ctx, storage.PrefixChunk)
	if err != nil {
		return fmt.Errorf("scan chunks: %w", err)
	}
	stats, err := p.tracker.Status(ctx)
	if err != nil {
		return fmt.Errorf("read embedding status: %w", err)
	}

	cmd.Printf("Database:   %s (%s driver, %s build)\n", cfg.DBPath, storage.DriverName, storage.BuildMode)
	cmd.Printf("Documents:  %d\n", len(docs))
	cmd.Printf("Chunks:     %d\n", len(chunks))
	cmd.Printf("Embeddings: %d completed, %d pending, %d failed\n",
		stats.Completed, stats.Pending, stats.Failed)
	if stats.Failed > 0 {
		cmd.Println("\nRun 'sdkdocs reset-failed' to queue failed embeddings for retry.")
	}
	return nil
}
