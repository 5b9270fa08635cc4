package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested key doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned when operating on a closed store
	ErrClosed = errors.New("storage is closed")
)

// Key namespaces. Every record lives under one prefix so related records can
// be enumerated with a single prefix scan.
const (
	PrefixChunk     = "chunk:"
	PrefixEmbedding = "embedding:"
	PrefixSync      = "sync:"
	PrefixDoc       = "doc:"
	PrefixMeta      = "meta:"
)

// ChunkKey returns the storage key for a chunk's stable key
func ChunkKey(stableKey string) string { return PrefixChunk + stableKey }

// EmbeddingKey returns the storage key for an embedding record
func EmbeddingKey(stableKey string) string { return PrefixEmbedding + stableKey }

// SyncKey returns the storage key for a sync state record
func SyncKey(stableKey string) string { return PrefixSync + stableKey }

// DocKey returns the storage key for a source document hash
func DocKey(docID string) string { return PrefixDoc + docID }

// Tx is the transactional view of the store: reads and writes issued through
// it commit or roll back together.
type Tx interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is the key-value contract the indexing pipeline consumes. The tracker
// and the embedding service depend only on this interface, never on a
// concrete engine.
type Store interface {
	Tx

	// Scan returns all key/value pairs under the given prefix. An empty
	// prefix returns everything.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)

	// Update runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// GetJSON loads the value at key and unmarshals it into dst
func GetJSON(ctx context.Context, g Tx, key string, dst any) error {
	data, err := g.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and stores it at key
func PutJSON(ctx context.Context, p Tx, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.Put(ctx, key, data)
}
