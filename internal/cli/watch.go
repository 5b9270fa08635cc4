package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
)

var watchDebounceMs int

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Reindex automatically when documentation files change",
	Long: `Runs a full indexing pass, then watches the directory and reindexes
whenever a documentation file is created, written, renamed, or removed.
Bursts of filesystem events coalesce into one run.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", 0, "event coalescing window in milliseconds (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openPipeline(ctx, indexer.Config{}, true)
	if err != nil {
		return err
	}
	defer p.close()

	docs, err := indexer.LoadDirectory(args[0])
	if err != nil {
		return err
	}
	if _, err := p.indexer.Run(ctx, docs); err != nil {
		return err
	}

	debounce := cfg.Watch.Debounce()
	if watchDebounceMs > 0 {
		debounce = time.Duration(watchDebounceMs) * time.Millisecond
	}
	cmd.Printf("Watching %s (debounce %s). Ctrl-C to stop.\n", args[0], debounce)

	watcher := indexer.NewWatcher(args[0], p.indexer, debounce, log)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
