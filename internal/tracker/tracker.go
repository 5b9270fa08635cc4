// Package tracker owns the embedding synchronization state machine.
//
// Every chunk is tracked under its stable key, never its run-scoped ID: the
// ID carries a timestamp suffix and changes on every indexing run, while the
// stable key survives as long as the chunk's place in the SDK does. State
// transitions are pending -> completed, pending -> failed, and
// failed -> pending on reset. The tracker is the sole writer of sync and
// embedding records; a store failure here is fatal to the indexing run.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// SyncResult partitions one run's chunks against the tracked state.
type SyncResult struct {
	// New chunks need embeddings: never seen before, or seen but still
	// pending or previously failed.
	New []types.DocumentChunk
	// Updated chunks changed content since their last embedding. The old
	// embedding is already invalidated when SyncChunks returns.
	Updated []types.DocumentChunk
	// Unchanged chunks have a completed embedding for their current content.
	Unchanged []types.DocumentChunk
	// Orphaned stable keys were tracked but absent from this run. Their
	// state and embeddings are already removed.
	Orphaned []string
}

// NeedsEmbedding returns the chunks an embedding run must process, in
// sync order: new first, then updated.
func (r SyncResult) NeedsEmbedding() []types.DocumentChunk {
	out := make([]types.DocumentChunk, 0, len(r.New)+len(r.Updated))
	out = append(out, r.New...)
	out = append(out, r.Updated...)
	return out
}

// Stats counts tracked chunks per synchronization state.
type Stats struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Tracker persists synchronization state in the KV store. Safe for
// concurrent use: a mutex sequences in-process transitions, and every
// transition runs in a single store transaction.
type Tracker struct {
	mu    sync.Mutex
	store storage.Store
}

// New returns a Tracker over the given store.
func New(store storage.Store) *Tracker {
	return &Tracker{store: store}
}

// SyncChunks reconciles one run's chunks against the tracked state and
// returns the partition. New and updated chunks are marked pending; a
// previously failed chunk whose content is unchanged returns to pending
// with its retry count intact. Tracked keys missing from chunks are
// orphans: their state and embedding records are deleted. The entire
// reconciliation commits in one transaction.
func (t *Tracker) SyncChunks(ctx context.Context, chunks []types.DocumentChunk) (SyncResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	states, err := t.loadStates(ctx)
	if err != nil {
		return SyncResult{}, &types.TrackerError{Op: "sync", Err: err}
	}

	var result SyncResult
	seen := make(map[string]bool, len(chunks))
	now := time.Now().UTC()

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		for _, chunk := range chunks {
			key := chunk.StableKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			hash := chunk.ContentHash()

			prev, tracked := states[key]
			switch {
			case !tracked:
				state := types.SyncState{
					StableKey:   key,
					ContentHash: hash,
					Status:      types.SyncPending,
					ChunkID:     chunk.ID,
					UpdatedAt:   now,
				}
				if err := storage.PutJSON(ctx, tx, storage.SyncKey(key), state); err != nil {
					return err
				}
				result.New = append(result.New, chunk)

			case prev.ContentHash != hash:
				// Content changed: the stored embedding no longer
				// describes this chunk.
				state := types.SyncState{
					StableKey:   key,
					ContentHash: hash,
					Status:      types.SyncPending,
					ChunkID:     chunk.ID,
					UpdatedAt:   now,
				}
				if err := storage.PutJSON(ctx, tx, storage.SyncKey(key), state); err != nil {
					return err
				}
				if err := tx.Delete(ctx, storage.EmbeddingKey(key)); err != nil {
					return err
				}
				result.Updated = append(result.Updated, chunk)

			case prev.Status == types.SyncCompleted:
				if prev.ChunkID != chunk.ID {
					prev.ChunkID = chunk.ID
					if err := storage.PutJSON(ctx, tx, storage.SyncKey(key), prev); err != nil {
						return err
					}
				}
				result.Unchanged = append(result.Unchanged, chunk)

			default:
				// Pending or failed with unchanged content: still owed
				// an embedding.
				prev.Status = types.SyncPending
				prev.FailureReason = ""
				prev.ChunkID = chunk.ID
				prev.UpdatedAt = now
				if err := storage.PutJSON(ctx, tx, storage.SyncKey(key), prev); err != nil {
					return err
				}
				result.New = append(result.New, chunk)
			}
		}

		for key := range states {
			if seen[key] {
				continue
			}
			if err := tx.Delete(ctx, storage.SyncKey(key)); err != nil {
				return err
			}
			if err := tx.Delete(ctx, storage.EmbeddingKey(key)); err != nil {
				return err
			}
			result.Orphaned = append(result.Orphaned, key)
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, &types.TrackerError{Op: "sync", Err: err}
	}

	sort.Strings(result.Orphaned)
	return result, nil
}

// MarkCompleted records a successful embedding: the record and the
// completed state persist in one transaction.
func (t *Tracker) MarkCompleted(ctx context.Context, key string, record types.EmbeddingRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.store.Update(ctx, func(tx storage.Tx) error {
		var state types.SyncState
		if err := storage.GetJSON(ctx, tx, storage.SyncKey(key), &state); err != nil {
			return err
		}
		state.Status = types.SyncCompleted
		state.FailureReason = ""
		state.Model = record.Model
		state.UpdatedAt = time.Now().UTC()
		if record.ChunkID != "" {
			state.ChunkID = record.ChunkID
		}
		record.StableKey = key
		if record.CreatedAt.IsZero() {
			record.CreatedAt = state.UpdatedAt
		}
		if err := storage.PutJSON(ctx, tx, storage.EmbeddingKey(key), record); err != nil {
			return err
		}
		return storage.PutJSON(ctx, tx, storage.SyncKey(key), state)
	})
	if err != nil {
		return &types.TrackerError{Op: "complete", Key: key, Err: err}
	}
	return nil
}

// MarkFailed records an embedding failure and increments the retry count.
// The chunk stays tracked so a later run or ResetFailed can retry it.
func (t *Tracker) MarkFailed(ctx context.Context, key, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.store.Update(ctx, func(tx storage.Tx) error {
		var state types.SyncState
		if err := storage.GetJSON(ctx, tx, storage.SyncKey(key), &state); err != nil {
			return err
		}
		state.Status = types.SyncFailed
		state.RetryCount++
		state.FailureReason = reason
		state.UpdatedAt = time.Now().UTC()
		return storage.PutJSON(ctx, tx, storage.SyncKey(key), state)
	})
	if err != nil {
		return &types.TrackerError{Op: "fail", Key: key, Err: err}
	}
	return nil
}

// ResetFailed returns every failed chunk to pending and reports how many
// were reset. Retry counts are preserved; completed chunks are untouched.
func (t *Tracker) ResetFailed(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	states, err := t.loadStates(ctx)
	if err != nil {
		return 0, &types.TrackerError{Op: "reset", Err: err}
	}

	keys := make([]string, 0)
	for key, state := range states {
		if state.Status == types.SyncFailed {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	err = t.store.Update(ctx, func(tx storage.Tx) error {
		for _, key := range keys {
			state := states[key]
			state.Status = types.SyncPending
			state.FailureReason = ""
			state.UpdatedAt = now
			if err := storage.PutJSON(ctx, tx, storage.SyncKey(key), state); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, &types.TrackerError{Op: "reset", Err: err}
	}
	return len(keys), nil
}

// Pending lists the chunks still owed an embedding, ordered by stable key.
func (t *Tracker) Pending(ctx context.Context) ([]types.SyncState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	states, err := t.loadStates(ctx)
	if err != nil {
		return nil, &types.TrackerError{Op: "pending", Err: err}
	}
	out := make([]types.SyncState, 0)
	for _, state := range states {
		if state.Status == types.SyncPending {
			out = append(out, state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StableKey < out[j].StableKey })
	return out, nil
}

// Status counts tracked chunks per state.
func (t *Tracker) Status(ctx context.Context) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	states, err := t.loadStates(ctx)
	if err != nil {
		return Stats{}, &types.TrackerError{Op: "status", Err: err}
	}
	var stats Stats
	for _, state := range states {
		switch state.Status {
		case types.SyncPending:
			stats.Pending++
		case types.SyncCompleted:
			stats.Completed++
		case types.SyncFailed:
			stats.Failed++
		}
		stats.Total++
	}
	return stats, nil
}

// Records returns every stored embedding record, ordered by stable key.
// The embedding service reads these for similarity search.
func (t *Tracker) Records(ctx context.Context) ([]types.EmbeddingRecord, error) {
	raw, err := t.store.Scan(ctx, storage.PrefixEmbedding)
	if err != nil {
		return nil, &types.TrackerError{Op: "records", Err: err}
	}
	out := make([]types.EmbeddingRecord, 0, len(raw))
	for key, data := range raw {
		var record types.EmbeddingRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, &types.TrackerError{Op: "records", Key: key, Err: err}
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StableKey < out[j].StableKey })
	return out, nil
}

// loadStates scans every sync record into a map keyed by stable key.
func (t *Tracker) loadStates(ctx context.Context) (map[string]types.SyncState, error) {
	raw, err := t.store.Scan(ctx, storage.PrefixSync)
	if err != nil {
		return nil, err
	}
	states := make(map[string]types.SyncState, len(raw))
	for key, data := range raw {
		var state types.SyncState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		states[state.StableKey] = state
	}
	return states, nil
}
