// Package mcp implements the Model Context Protocol server that exposes
// the documentation index to AI coding assistants.
//
// Six tools are registered:
//   - index_docs: Index a directory of SDK documentation
//   - search_docs: Hybrid lexical + semantic search over indexed chunks
//   - discover_api: List the indexed API surface by namespace and class
//   - get_chunk: Fetch one chunk with full content and metadata
//   - embedding_status: Report chunk counts and embedding pipeline state
//   - reset_failed_embeddings: Queue failed embeddings for retry
//
// # Protocol Overview
//
// The server speaks JSON-RPC 2.0 over stdin/stdout. A client invokes a
// tool with a "tools/call" request and receives the tool's result, or
// an error object, in the response. Stdout is reserved for protocol
// traffic, so everything the server logs goes to stderr.
//
// # Basic Usage
//
// The server is typically started via the serve command:
//
//	sdkdocs serve
//
// Serve loads the search index from storage before accepting requests,
// so a previously indexed corpus is searchable immediately.
//
// # Tool: index_docs
//
//	Request:
//	{
//	  "name": "index_docs",
//	  "arguments": {
//	    "path": "/path/to/sdk-docs",
//	    "reset": false
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "documents_parsed": 12,
//	  "chunks_created": 214,
//	  "chunks_new": 32,
//	  "chunks_updated": 3,
//	  "chunks_orphaned": 1,
//	  "embeddings_failed": 0,
//	  "duration_ms": 1840
//	}
//
// The path must be absolute and contain at least one .json or .md
// file. An indexing run covers the whole directory: documents removed
// from it drop out of the index on the next run.
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "name": "search_docs",
//	  "arguments": {
//	    "query": "how do I subscribe to channel events",
//	    "limit": 5,
//	    "namespace": "messaging",
//	    "semantic": true
//	  }
//	}
//
//	Response:
//	{
//	  "total_results": 5,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "stable_key": "method:messaging:chatclient:subscribe",
//	      "namespace": "messaging",
//	      "type": "method",
//	      "scores": {"lexical": 0.82, "semantic": 0.91, "fused": 0.87},
//	      "content": "## ChatClient.subscribe ..."
//	    }
//	  ]
//	}
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {"param": "path", "reason": "path does not exist"}
//	  }
//	}
//
// The codes in use:
//   - -32602: invalid params (missing or malformed arguments)
//   - -32603: internal error (storage, parser, embedding provider)
//   - -32001: indexing run already in progress
//   - -32002: chunk not found
//   - -32003: query parameter is empty
//
// # MCP Client Configuration
//
// Configure in the assistant's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "sdkdocs": {
//	      "command": "/usr/local/bin/sdkdocs",
//	      "args": ["serve"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// Without an API key the server falls back to the deterministic local
// embedding provider, which keeps search fully functional offline.
package mcp
