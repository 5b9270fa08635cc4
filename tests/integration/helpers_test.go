package integration

import (
	"os"
	"path/filepath"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/embedder"
	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/internal/tracker"
)

// pipeline bundles the services behind one store the way the production
// assembly does, so suites exercise the real wiring end to end. The
// local embedding provider keeps every test offline.
type pipeline struct {
	store    storage.Store
	tracker  *tracker.Tracker
	embedder *embedder.Service
	searcher *searcher.Service
	indexer  *indexer.Indexer
}

func newPipeline(dbPath string) (*pipeline, error) {
	return newPipelineConfig(dbPath, indexer.Config{Workers: 2})
}

func newPipelineConfig(dbPath string, idxCfg indexer.Config) (*pipeline, error) {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	tr := tracker.New(store)
	emb := embedder.NewService(embedder.NewLocalProvider(), tr, config.EmbeddingConfig{
		MaxRetries:   1,
		RetryDelayMs: 1,
		CacheSize:    128,
	}, nil)
	search := searcher.NewService(store, emb, config.SearchConfig{}, nil)
	idx := indexer.New(store, tr, emb, search, idxCfg, nil)
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
	_ = p.embedder.Close()
	_ = p.store.Close()
}

// copyFixtures replicates the fixture tree into dst for tests that
// modify or remove documents.
func copyFixtures(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, content, 0o644)
	})
}
