package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/sdkdocs-mcp/internal/chunker"
	"github.com/dshills/sdkdocs-mcp/internal/embedder"
	"github.com/dshills/sdkdocs-mcp/internal/enhancer"
	"github.com/dshills/sdkdocs-mcp/internal/logger"
	"github.com/dshills/sdkdocs-mcp/internal/parser"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/internal/tracker"
	"github.com/dshills/sdkdocs-mcp/internal/validator"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// DefaultWorkers is the parallel width of the per-document stage.
const DefaultWorkers = 4

// Config tunes an Indexer. The zero value gets default workers, default
// chunk size limits, and every enhancement enabled.
type Config struct {
	// Workers bounds concurrent document processing.
	Workers int
	// Force disables the unchanged-document short circuit.
	Force bool
	// Enhance overrides the enhancement options; nil enables everything.
	Enhance *enhancer.Options
	// MinChunkSize and MaxChunkSize override the chunker's merge and
	// split thresholds when positive.
	MinChunkSize int
	MaxChunkSize int
}

// Summary reports one indexing run.
type Summary struct {
	DocumentsParsed  int
	Skipped          int // Documents short-circuited by unchanged hash
	UnitsParsed      int
	UnitsInvalid     int
	ChunksCreated    int
	Indexed          int // Chunks needing a first embedding
	Updated          int // Chunks whose content change invalidated an embedding
	Unchanged        int
	Orphaned         int
	EmbeddingsFailed int
	Errors           []string
	Duration         time.Duration
}

// Indexer coordinates the pipeline: parse, validate, chunk, enhance,
// synchronize, store, embed, refresh search.
type Indexer struct {
	parser   *parser.Registry
	chunker  *chunker.Chunker
	tracker  *tracker.Tracker
	embedder *embedder.Service
	searcher *searcher.Service
	store    storage.Store
	log      *slog.Logger

	enhance enhancer.Options
	workers int
	force   bool
	lock    RunLock
}

// New builds an Indexer. The tracker and store are required; a nil
// embedder skips embedding generation and a nil searcher skips the
// search index refresh, which suits ingest-only runs.
func New(store storage.Store, tr *tracker.Tracker, emb *embedder.Service, search *searcher.Service, cfg Config, log *slog.Logger) *Indexer {
	if log == nil {
		log = logger.Nop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	enhance := enhancer.DefaultOptions()
	if cfg.Enhance != nil {
		enhance = *cfg.Enhance
	}
	minSize, maxSize := cfg.MinChunkSize, cfg.MaxChunkSize
	if minSize <= 0 {
		minSize = types.ChunkMinSize
	}
	if maxSize <= 0 {
		maxSize = types.ChunkMaxSize
	}
	return &Indexer{
		parser:   parser.New(),
		chunker:  chunker.NewWithLimits(minSize, maxSize),
		tracker:  tr,
		embedder: emb,
		searcher: search,
		store:    store,
		log:      log,
		enhance:  enhance,
		workers:  workers,
		force:    cfg.Force,
	}
}

// docRecord is the per-document state stored under the doc: prefix. It
// powers the unchanged-document short circuit and maps a document to
// the chunks it produced.
type docRecord struct {
	ContentHash string    `json:"contentHash"`
	StableKeys  []string  `json:"stableKeys"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// docOutcome is one document's result from the parallel stage.
type docOutcome struct {
	id      string
	hash    string
	parsed  bool // Fresh parse succeeded; chunk and doc records need writing
	skipped bool
	units   int
	invalid int
	chunks  []types.DocumentChunk
	err     error
}

// Run executes the full pipeline over the given documents. The set must
// be complete: chunks whose source document is absent are treated as
// removed and dropped from the index. Unchanged documents skip parsing
// and contribute their stored chunks.
//
// Per-document failures are recorded in the summary and never abort the
// run. Context cancellation and store failures do; the returned summary
// then reflects progress up to the failure.
func (idx *Indexer) Run(ctx context.Context, docs []parser.SourceDocument) (*Summary, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	started := time.Now()
	summary := &Summary{}
	idx.log.Info("indexing run started", "documents", len(docs))

	outcomes := make([]docOutcome, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, idx.workers)
	for i := range docs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			outcomes[i] = idx.processDocument(gctx, docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		summary.Duration = time.Since(started)
		return summary, err
	}

	var chunks []types.DocumentChunk
	for _, out := range outcomes {
		chunks = append(chunks, out.chunks...)
		switch {
		case out.err != nil:
			summary.Errors = append(summary.Errors, out.err.Error())
			idx.log.Warn("document failed", "doc", out.id, "error", out.err)
		case out.skipped:
			summary.Skipped++
		default:
			summary.DocumentsParsed++
			summary.UnitsParsed += out.units
			summary.UnitsInvalid += out.invalid
			summary.ChunksCreated += len(out.chunks)
		}
	}

	synced, err := idx.tracker.SyncChunks(ctx, chunks)
	if err != nil {
		summary.Duration = time.Since(started)
		return summary, err
	}
	summary.Indexed = len(synced.New)
	summary.Updated = len(synced.Updated)
	summary.Unchanged = len(synced.Unchanged)
	summary.Orphaned = len(synced.Orphaned)

	if err := idx.persist(ctx, docs, outcomes, synced.Orphaned); err != nil {
		summary.Duration = time.Since(started)
		return summary, err
	}

	if needs := synced.NeedsEmbedding(); idx.embedder != nil && len(needs) > 0 {
		report, err := idx.embedder.GenerateEmbeddings(ctx, needs)
		if report != nil {
			summary.EmbeddingsFailed = len(needs) - len(report.Results)
			summary.Errors = append(summary.Errors, report.Errors...)
		}
		if err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}
	}

	if idx.searcher != nil {
		if err := idx.searcher.Reindex(ctx); err != nil {
			summary.Duration = time.Since(started)
			return summary, fmt.Errorf("refresh search index: %w", err)
		}
	}

	summary.Duration = time.Since(started)
	idx.log.Info("indexing run complete",
		"parsed", summary.DocumentsParsed,
		"skipped", summary.Skipped,
		"chunks", summary.ChunksCreated,
		"new", summary.Indexed,
		"updated", summary.Updated,
		"orphaned", summary.Orphaned,
		"embeddings_failed", summary.EmbeddingsFailed,
		"duration", summary.Duration)
	return summary, nil
}

// ResetDocuments forgets every stored document hash so the next run
// reparses all sources. Chunks, embeddings, and sync state stay put;
// reparsing unchanged content converges back to the same stable keys.
func (idx *Indexer) ResetDocuments(ctx context.Context) error {
	records, err := idx.store.Scan(ctx, storage.PrefixDoc)
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	return idx.store.Update(ctx, func(tx storage.Tx) error {
		for key := range records {
			if err := tx.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// processDocument runs the parse, validate, chunk, and enhance stages
// for one document. An unchanged document reuses its stored chunks so
// the synchronization stage sees the complete set. A document that
// fails to parse also reuses its stored chunks, keeping the last good
// state indexed until the source is fixed.
func (idx *Indexer) processDocument(ctx context.Context, doc parser.SourceDocument) docOutcome {
	out := docOutcome{id: doc.ID, hash: contentHash(doc.Content)}

	if !idx.force {
		if record, err := idx.loadDocRecord(ctx, doc.ID); err == nil && record.ContentHash == out.hash {
			chunks, err := idx.loadStoredChunks(ctx, record.StableKeys)
			if err == nil {
				out.skipped = true
				out.chunks = chunks
				return out
			}
			idx.log.Warn("stored chunks unavailable, reparsing", "doc", doc.ID, "error", err)
		}
	}

	units, err := idx.parser.Parse(doc)
	if err != nil {
		out.err = fmt.Errorf("parse %s: %v", doc.ID, err)
		if record, rerr := idx.loadDocRecord(ctx, doc.ID); rerr == nil {
			if chunks, cerr := idx.loadStoredChunks(ctx, record.StableKeys); cerr == nil {
				out.chunks = chunks
			}
		}
		return out
	}

	batch := validator.ValidateBatch(units)
	for _, result := range batch.Results {
		if !result.Valid {
			idx.log.Warn("unit failed validation",
				"doc", doc.ID, "unit", result.Name, "errors", len(result.Errors))
		}
	}
	out.units = batch.ValidCount
	out.invalid = batch.InvalidCount

	out.chunks = enhancer.EnhanceAll(idx.chunker.Chunk(batch.Valid()), idx.enhance)
	out.parsed = true
	return out
}

// persist writes the run's chunk and document records and removes
// everything the run obsoleted, in one transaction.
func (idx *Indexer) persist(ctx context.Context, docs []parser.SourceDocument, outcomes []docOutcome, orphaned []string) error {
	staleDocs, err := idx.staleDocIDs(ctx, docs)
	if err != nil {
		return err
	}

	return idx.store.Update(ctx, func(tx storage.Tx) error {
		now := time.Now().UTC()
		for _, out := range outcomes {
			if !out.parsed {
				continue
			}
			keys := make([]string, 0, len(out.chunks))
			for _, chunk := range out.chunks {
				key := chunk.StableKey()
				keys = append(keys, key)
				if err := storage.PutJSON(ctx, tx, storage.ChunkKey(key), chunk); err != nil {
					return err
				}
			}
			record := docRecord{ContentHash: out.hash, StableKeys: keys, IndexedAt: now}
			if err := storage.PutJSON(ctx, tx, storage.DocKey(out.id), record); err != nil {
				return err
			}
		}
		for _, key := range orphaned {
			if err := tx.Delete(ctx, storage.ChunkKey(key)); err != nil {
				return err
			}
		}
		for _, id := range staleDocs {
			if err := tx.Delete(ctx, storage.DocKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// staleDocIDs finds stored document records whose source is absent from
// this run's input.
func (idx *Indexer) staleDocIDs(ctx context.Context, docs []parser.SourceDocument) ([]string, error) {
	present := make(map[string]bool, len(docs))
	for _, doc := range docs {
		present[storage.DocKey(doc.ID)] = true
	}
	stored, err := idx.store.Scan(ctx, storage.PrefixDoc)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	var stale []string
	for key := range stored {
		if !present[key] {
			stale = append(stale, key[len(storage.PrefixDoc):])
		}
	}
	return stale, nil
}

func (idx *Indexer) loadDocRecord(ctx context.Context, docID string) (docRecord, error) {
	var record docRecord
	err := storage.GetJSON(ctx, idx.store, storage.DocKey(docID), &record)
	return record, err
}

// loadStoredChunks resolves a document's stable keys to stored chunks.
// Any missing chunk fails the whole load, which forces a reparse.
func (idx *Indexer) loadStoredChunks(ctx context.Context, keys []string) ([]types.DocumentChunk, error) {
	chunks := make([]types.DocumentChunk, 0, len(keys))
	for _, key := range keys {
		var chunk types.DocumentChunk
		if err := storage.GetJSON(ctx, idx.store, storage.ChunkKey(key), &chunk); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("chunk %s missing", key)
			}
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
