// Package types provides shared type definitions for the SDK docs MCP server.
//
// This package defines the domain types used across the indexing pipeline:
// parsed content units, document chunks, embedding records, synchronization
// state, and search results.
//
// # Core Types
//
// ParsedContent is the normalized unit a parser produces from one source
// section (a method, class, type definition, or narrative doc section):
//
//	content := types.ParsedContent{
//	    Type:        types.ContentMethod,
//	    Name:        "sendMessage",
//	    Description: "Sends a message to the given channel.",
//	    Content:     signature + paramDocs,
//	}
//
// DocumentChunk is the independently retrievable unit of search:
//
//	chunk := types.DocumentChunk{
//	    ID:      types.NewChunkID(stableKey),
//	    Content: body,
//	    Metadata: types.ChunkMetadata{
//	        Type:       types.ContentMethod,
//	        Namespace:  "messaging",
//	        ClassName:  "ChatClient",
//	        MethodName: "sendMessage",
//	        Importance: types.ImportanceHigh,
//	    },
//	}
//
// # Identity
//
// Chunk IDs carry a millisecond timestamp suffix and are unique per run.
// Synchronization state is keyed on StableKey(), derived from the chunk's
// classifying metadata, so unchanged content keeps its identity across runs:
//
//	chunk.StableKey()   // "method:messaging:chatclient:sendmessage"
//	chunk.ContentHash() // SHA-256 hex of the content, drives re-embedding
//
// # Error Taxonomy
//
// ParseError isolates one malformed document, ValidationError excludes one
// unit from a batch, EmbeddingError is retried then recorded (never thrown),
// and TrackerError is fatal because corrupted sync state risks
// double-embedding.
package types
