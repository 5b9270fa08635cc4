package cli

import (
	"context"
	"fmt"

	"github.com/dshills/sdkdocs-mcp/internal/embedder"
	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/internal/tracker"
)

// pipeline bundles the services a command needs against one open store.
type pipeline struct {
	store    storage.Store
	tracker  *tracker.Tracker
	embedder *embedder.Service
	searcher *searcher.Service
	indexer  *indexer.Indexer
}

// openPipeline opens the configured database and wires the services on
// top of it. Commands that never touch embeddings pass withEmbedder
// false and skip provider initialization entirely, so status and
// reset-failed work without API keys.
func openPipeline(ctx context.Context, icfg indexer.Config, withEmbedder bool) (*pipeline, error) {
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	tr := tracker.New(store)

	var emb *embedder.Service
	if withEmbedder {
		provider, err := embedder.New(ctx, cfg.Embedding)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("initialize embedding provider: %w", err)
		}
		emb = embedder.NewService(provider, tr, cfg.Embedding, log)
	}

	icfg.MinChunkSize = cfg.Chunk.MinSize
	icfg.MaxChunkSize = cfg.Chunk.MaxSize
	search := searcher.NewService(store, emb, cfg.Search, log)
	idx := indexer.New(store, tr, emb, search, icfg, log)

	return &pipeline{
		store:    store,
		tracker:  tr,
		embedder: emb,
		searcher: search,
		indexer:  idx,
	}, nil
}

func (p *pipeline) close() {
	_ = p.searcher.Close()
	if p.embedder != nil {
		_ = p.embedder.Close()
	}
	_ = p.store.Close()
}
