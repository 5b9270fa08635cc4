package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocsTool returns the tool definition for index_docs
func indexDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_docs",
		Description: "Index a directory of SDK documentation to make it searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the documentation root (must contain .json or .md files)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, forget stored document hashes and reparse every source (full rebuild)",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Search indexed SDK documentation with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one SDK namespace (e.g., 'messaging')",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one content type",
					"enum":        []string{"method", "class", "type", "example"},
				},
				"importance": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one importance level",
					"enum":        []string{"critical", "high", "medium", "low"},
				},
				"semantic": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, skip the embedding path and rank by lexical score only",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

// discoverAPITool returns the tool definition for discover_api
func discoverAPITool() mcp.Tool {
	return mcp.Tool{
		Name:        "discover_api",
		Description: "List the indexed API surface grouped by namespace and class",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Only list methods in this namespace",
				},
				"keyword": map[string]interface{}{
					"type":        "string",
					"description": "Only list methods whose name contains this substring",
				},
			},
		},
	}
}

// getChunkTool returns the tool definition for get_chunk
func getChunkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_chunk",
		Description: "Fetch one documentation chunk with its full content and metadata",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Chunk id from a search result, or a stable key",
				},
			},
			Required: []string{"id"},
		},
	}
}

// embeddingStatusTool returns the tool definition for embedding_status
func embeddingStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "embedding_status",
		Description: "Report stored chunk counts and embedding pipeline state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// resetFailedEmbeddingsTool returns the tool definition for reset_failed_embeddings
func resetFailedEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reset_failed_embeddings",
		Description: "Move failed embeddings back to pending so the next indexing run retries them",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
