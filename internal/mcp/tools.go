package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeIndexInProgress = -32001 // Another indexing run is already running
	ErrorCodeChunkNotFound   = -32002 // No chunk matches the given id
	ErrorCodeEmptyQuery      = -32003 // Query parameter is empty
)

// handleIndexDocs handles the index_docs tool invocation
func (s *Server) handleIndexDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateDocsPath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if getBoolDefault(args, "reset", false) {
		if err := s.indexer.ResetDocuments(ctx); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "reset failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	docs, err := indexer.LoadDirectory(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "loading documents failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	summary, err := s.indexer.Run(ctx, docs)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexInProgress, "an indexing run is already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":           true,
		"documents_parsed":  summary.DocumentsParsed,
		"documents_skipped": summary.Skipped,
		"chunks_created":    summary.ChunksCreated,
		"chunks_new":        summary.Indexed,
		"chunks_updated":    summary.Updated,
		"chunks_unchanged":  summary.Unchanged,
		"chunks_orphaned":   summary.Orphaned,
		"embeddings_failed": summary.EmbeddingsFailed,
		"duration_ms":       summary.Duration.Milliseconds(),
	}
	if count := len(summary.Errors); count > 0 {
		if count > 5 {
			response["errors"] = summary.Errors[:5]
		} else {
			response["errors"] = summary.Errors
		}
		response["error_count"] = count
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > config.DefaultSearchMaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("limit must be between 1 and %d", config.DefaultSearchMaxLimit),
			map[string]interface{}{
				"param": "limit",
				"value": limit,
			})
	}

	contentType := getStringDefault(args, "type", "")
	if contentType != "" && !types.ValidContentType(types.ContentType(contentType)) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid type", map[string]interface{}{
			"param":   "type",
			"value":   contentType,
			"allowed": []string{"method", "class", "type", "example"},
		})
	}
	importance := getStringDefault(args, "importance", "")
	if importance != "" && !types.ValidImportance(types.Importance(importance)) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid importance", map[string]interface{}{
			"param":   "importance",
			"value":   importance,
			"allowed": []string{"critical", "high", "medium", "low"},
		})
	}

	req := searcher.Request{
		Query:    query,
		Limit:    limit,
		Semantic: getBoolDefault(args, "semantic", true),
		Filters: searcher.Filters{
			Namespace:  getStringDefault(args, "namespace", ""),
			Type:       contentType,
			Importance: importance,
		},
	}
	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for i := range resp.Results {
		res := &resp.Results[i]
		entry := map[string]interface{}{
			"rank":       res.Rank,
			"id":         res.Chunk.ID,
			"stable_key": res.Chunk.StableKey(),
			"namespace":  res.Chunk.Metadata.Namespace,
			"type":       string(res.Chunk.Metadata.Type),
			"class":      res.Chunk.Metadata.ClassName,
			"method":     res.Chunk.Metadata.MethodName,
			"section":    res.Chunk.Metadata.Section,
			"importance": string(res.Chunk.Metadata.Importance),
			"scores": map[string]interface{}{
				"lexical":  res.LexicalScore,
				"semantic": res.SemanticScore,
				"fused":    res.FusedScore,
			},
			"content": res.Chunk.Content,
		}
		if len(res.Chunk.Metadata.Tags) > 0 {
			entry["tags"] = res.Chunk.Metadata.Tags
		}
		results = append(results, entry)
	}
	response := map[string]interface{}{
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDiscoverAPI handles the discover_api tool invocation
func (s *Server) handleDiscoverAPI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	namespace := getStringDefault(args, "namespace", "")
	keyword := getStringDefault(args, "keyword", "")

	groups := s.searcher.DiscoverAPI(namespace, keyword)
	methods := 0
	for _, group := range groups {
		for _, class := range group.Classes {
			methods += len(class.Methods)
		}
	}
	response := map[string]interface{}{
		"namespaces": groups,
		"methods":    methods,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetChunk handles the get_chunk tool invocation
func (s *Server) handleGetChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	chunk, found := s.searcher.GetChunk(id)
	if !found {
		return nil, newMCPError(ErrorCodeChunkNotFound, "chunk not found", map[string]interface{}{
			"id": id,
		})
	}

	response := map[string]interface{}{
		"id":              chunk.ID,
		"stable_key":      chunk.StableKey(),
		"content":         chunk.Content,
		"token_estimate":  chunk.EstimateTokens(),
		"namespace":       chunk.Metadata.Namespace,
		"type":            string(chunk.Metadata.Type),
		"class":           chunk.Metadata.ClassName,
		"method":          chunk.Metadata.MethodName,
		"section":         chunk.Metadata.Section,
		"importance":      string(chunk.Metadata.Importance),
		"tags":            chunk.Metadata.Tags,
		"related_methods": chunk.Metadata.RelatedMethods,
		"dependencies":    chunk.Metadata.Dependencies,
		"common_mistakes": chunk.Metadata.CommonMistakes,
		"use_cases":       chunk.Metadata.UseCases,
		"source_file":     chunk.Metadata.SourceFile,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEmbeddingStatus handles the embedding_status tool invocation
func (s *Server) handleEmbeddingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.tracker.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read embedding status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	stored, err := s.store.Scan(ctx, storage.PrefixChunk)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"chunks_stored":  len(stored),
		"chunks_indexed": s.searcher.ChunkCount(),
		"embeddings": map[string]interface{}{
			"pending":   stats.Pending,
			"completed": stats.Completed,
			"failed":    stats.Failed,
			"total":     stats.Total,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResetFailedEmbeddings handles the reset_failed_embeddings tool invocation
func (s *Server) handleResetFailedEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.tracker.ResetFailed(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "reset failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"reset": count,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDocsPath checks that path is an absolute, readable directory
// holding at least one indexable file. Rejecting empty directories
// keeps a mistyped path from orphaning the whole index.
func validateDocsPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	hasDocs := false
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && indexer.IndexableFile(p) {
			hasDocs = true
		}
		return nil
	})
	if !hasDocs {
		return ErrNoDocFiles
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoDocFiles      = errors.New("directory contains no .json or .md documentation files")
)
