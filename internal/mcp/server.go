package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/embedder"
	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/logger"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/internal/tracker"
)

const (
	// ServerName is the MCP server name
	ServerName = "sdkdocs-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	tools    map[string]server.ToolHandlerFunc
	store    storage.Store
	tracker  *tracker.Tracker
	embedder *embedder.Service
	searcher *searcher.Service
	indexer  *indexer.Indexer
	log      *slog.Logger
}

// NewServer assembles the full pipeline behind an MCP server: SQLite
// storage at cfg.DBPath, the embedding provider named by the config,
// the sync tracker, the hybrid searcher, and the indexer.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	provider, err := embedder.New(ctx, cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize embedding provider: %w", err)
	}

	tr := tracker.New(store)
	emb := embedder.NewService(provider, tr, cfg.Embedding, log)
	search := searcher.NewService(store, emb, cfg.Search, log)
	idx := indexer.New(store, tr, emb, search, indexer.Config{
		MinChunkSize: cfg.Chunk.MinSize,
		MaxChunkSize: cfg.Chunk.MaxSize,
	}, log)

	return newServer(store, tr, emb, search, idx, log), nil
}

// newServer wires pre-built dependencies into a Server and registers
// the tools.
func newServer(store storage.Store, tr *tracker.Tracker, emb *embedder.Service, search *searcher.Service, idx *indexer.Indexer, log *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		tracker:  tr,
		embedder: emb,
		searcher: search,
		indexer:  idx,
		log:      log,
	}
	s.registerTools()
	return s
}

// Serve loads the search index from storage and then serves MCP over
// stdio until the client disconnects. Stdout carries protocol traffic;
// logging must go to stderr.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.searcher.Reindex(ctx); err != nil {
		return fmt.Errorf("load search index: %w", err)
	}
	s.log.Info("mcp server ready",
		"name", ServerName,
		"version", ServerVersion,
		"chunks", s.searcher.ChunkCount())
	return server.ServeStdio(s.mcp)
}

// Close releases the search index, the embedding provider, and storage.
func (s *Server) Close() error {
	var firstErr error
	if err := s.searcher.Close(); err != nil {
		firstErr = err
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.tools = make(map[string]server.ToolHandlerFunc, 6)
	register := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.tools[tool.Name] = handler
		s.mcp.AddTool(tool, handler)
	}
	register(indexDocsTool(), s.handleIndexDocs)
	register(searchDocsTool(), s.handleSearchDocs)
	register(discoverAPITool(), s.handleDiscoverAPI)
	register(getChunkTool(), s.handleGetChunk)
	register(embeddingStatusTool(), s.handleEmbeddingStatus)
	register(resetFailedEmbeddingsTool(), s.handleResetFailedEmbeddings)
}

// CallTool invokes one registered tool by name without going through
// the stdio transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	handler, ok := s.tools[name]
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("unknown tool %q", name), nil)
	}
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	return handler(ctx, request)
}
