package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
)

var (
	indexForce   bool
	indexReset   bool
	indexWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Parse, chunk, embed, and index a documentation directory",
	Long: `Indexes every .json API spec and .md guide under the given directory.

Unchanged documents are skipped via content hashes, so re-running after
an edit only reprocesses what changed. The directory is treated as the
complete corpus: documents removed from it drop out of the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reparse every document, ignoring stored hashes")
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "forget stored document state before the run")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", indexer.DefaultWorkers, "parallel document parsers")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := openPipeline(ctx, indexer.Config{Workers: indexWorkers, Force: indexForce}, true)
	if err != nil {
		return err
	}
	defer p.close()

	if indexReset {
		if err := p.indexer.ResetDocuments(ctx); err != nil {
			return fmt.Errorf("reset document state: %w", err)
		}
	}

	docs, err := indexer.LoadDirectory(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no .json or .md documentation files under %s", args[0])
	}

	summary, err := p.indexer.Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Documents:  %d parsed, %d unchanged\n", summary.DocumentsParsed, summary.Skipped)
	cmd.Printf("Chunks:     %d new, %d updated, %d unchanged, %d removed\n",
		summary.Indexed, summary.Updated, summary.Unchanged, summary.Orphaned)
	if summary.UnitsInvalid > 0 {
		cmd.Printf("Validation: %d unit(s) rejected\n", summary.UnitsInvalid)
	}
	if summary.EmbeddingsFailed > 0 {
		cmd.Printf("Embeddings: %d failed (run 'sdkdocs reset-failed' to retry)\n", summary.EmbeddingsFailed)
	}
	for _, msg := range summary.Errors {
		cmd.PrintErrf("Warning: %s\n", msg)
	}
	cmd.Printf("Done in %s\n", summary.Duration.Round(time.Millisecond))
	return nil
}
