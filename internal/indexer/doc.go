// Package indexer coordinates the end-to-end ingestion pipeline for
// SDK documentation.
//
// A run takes the complete set of source documents and drives them
// through parse, validate, chunk, enhance, synchronize, store, embed,
// and search refresh. Every stage tolerates per-item failure; only
// synchronization-state corruption, store failure, or cancellation
// aborts a run.
//
// # Basic Usage
//
//	idx := indexer.New(store, tracker, embedder, searcher, indexer.Config{}, log)
//
//	docs, err := indexer.LoadDirectory("./docs")
//	if err != nil {
//		return err
//	}
//	summary, err := idx.Run(ctx, docs)
//
//	fmt.Printf("indexed %d chunks (%d new, %d updated) in %v\n",
//		summary.ChunksCreated, summary.Indexed, summary.Updated, summary.Duration)
//
// # Pipeline
//
//  1. Parse: each document is dispatched to the spec or markdown
//     parser. Documents process in parallel, bounded by Config.Workers.
//  2. Validate: structurally broken units are logged and excluded;
//     their siblings proceed.
//  3. Chunk and enhance: the hybrid selector picks a strategy per unit,
//     sizes are normalized, cross-references and enhancements applied.
//  4. Synchronize: the tracker partitions the run into new, updated,
//     unchanged, and orphaned chunks, invalidating stale embeddings.
//  5. Store: chunk and document records are written, removed content
//     deleted, all in one transaction.
//  6. Embed: new and updated chunks get embeddings in batches; a failed
//     batch marks its chunks failed and the run continues.
//  7. Refresh: the search service rebuilds its in-memory index.
//
// # Incremental Runs
//
// Each document record stores a SHA-256 hash of the raw source. An
// unchanged document skips parsing entirely and contributes its stored
// chunks, so the synchronization stage always sees the full set:
//
//	// First run: parses everything
//	summary1, _ := idx.Run(ctx, docs)   // Parsed: 40, Skipped: 0
//
//	// Second run: only the edited file parses
//	summary2, _ := idx.Run(ctx, docs)   // Parsed: 1, Skipped: 39
//
// Run must always receive the complete document set. Chunks whose
// source document is missing from the input are treated as removed:
// their records, synchronization state, and embeddings are deleted.
// Config.Force disables the short circuit for full rebuilds.
//
// A document that fails to parse keeps its previously indexed chunks,
// so a broken edit never drops a document from search mid-session.
//
// # Concurrency
//
// One run holds a non-blocking RunLock; concurrent Run calls fail fast
// with ErrIndexInProgress rather than queueing. Within a run, document
// processing fans out over an errgroup bounded by a semaphore.
//
// # Watch Mode
//
// Watcher re-runs the pipeline when files under the docs root change,
// coalescing event bursts with a debounce window (default 2s):
//
//	w := indexer.NewWatcher("./docs", idx, cfg.Watch.Debounce(), log)
//	err := w.Run(ctx) // blocks until ctx is cancelled
package indexer
