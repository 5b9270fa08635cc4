package tracker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

func testChunk(method, content string) types.DocumentChunk {
	chunk := types.DocumentChunk{
		Content: content,
		Metadata: types.ChunkMetadata{
			Type:       types.ContentMethod,
			Namespace:  "messaging",
			ClassName:  "ChatClient",
			MethodName: method,
			Importance: types.ImportanceHigh,
		},
	}
	chunk.ID = types.NewChunkID(chunk.StableKey())
	return chunk
}

func record(chunk types.DocumentChunk) types.EmbeddingRecord {
	return types.EmbeddingRecord{
		ChunkID:    chunk.ID,
		StableKey:  chunk.StableKey(),
		Vector:     []float32{0.1, 0.2, 0.3},
		Model:      "text-embedding-3-small",
		TokenCount: 12,
	}
}

func TestSyncChunks_NewChunksArePending(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	chunks := []types.DocumentChunk{
		testChunk("connect", "connect() -> void"),
		testChunk("sendMessage", "sendMessage(text: string) -> Receipt"),
	}
	result, err := tr.SyncChunks(ctx, chunks)
	require.NoError(t, err)

	assert.Len(t, result.New, 2)
	assert.Empty(t, result.Updated)
	assert.Empty(t, result.Unchanged)
	assert.Empty(t, result.Orphaned)

	stats, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 2, Total: 2}, stats)
}

func TestSyncChunks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	chunks := []types.DocumentChunk{
		testChunk("connect", "connect() -> void"),
		testChunk("sendMessage", "sendMessage(text: string) -> Receipt"),
		testChunk("disconnect", "disconnect() -> void"),
	}
	first, err := tr.SyncChunks(ctx, chunks)
	require.NoError(t, err)
	require.Len(t, first.New, 3)

	for _, chunk := range first.New {
		require.NoError(t, tr.MarkCompleted(ctx, chunk.StableKey(), record(chunk)))
	}

	// A second sync of identical content has nothing left to embed.
	second, err := tr.SyncChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Empty(t, second.New)
	assert.Empty(t, second.Updated)
	assert.Empty(t, second.Orphaned)
	assert.Len(t, second.Unchanged, 3)

	stats, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 3, Total: 3}, stats)
}

func TestSyncChunks_ContentChangeInvalidatesEmbedding(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := New(store)

	original := testChunk("connect", "connect() -> void")
	_, err := tr.SyncChunks(ctx, []types.DocumentChunk{original})
	require.NoError(t, err)
	require.NoError(t, tr.MarkCompleted(ctx, original.StableKey(), record(original)))

	edited := testChunk("connect", "connect(timeout: number) -> void")
	require.Equal(t, original.StableKey(), edited.StableKey())

	result, err := tr.SyncChunks(ctx, []types.DocumentChunk{edited})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Empty(t, result.New)
	assert.Empty(t, result.Unchanged)

	_, err = store.Get(ctx, storage.EmbeddingKey(original.StableKey()))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Total: 1}, stats)
}

func TestSyncChunks_RemovedChunksAreOrphaned(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := New(store)

	keep := testChunk("connect", "connect() -> void")
	drop := testChunk("legacySend", "legacySend(text: string) -> void")
	_, err := tr.SyncChunks(ctx, []types.DocumentChunk{keep, drop})
	require.NoError(t, err)
	require.NoError(t, tr.MarkCompleted(ctx, drop.StableKey(), record(drop)))

	result, err := tr.SyncChunks(ctx, []types.DocumentChunk{keep})
	require.NoError(t, err)
	assert.Equal(t, []string{drop.StableKey()}, result.Orphaned)

	_, err = store.Get(ctx, storage.SyncKey(drop.StableKey()))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(ctx, storage.EmbeddingKey(drop.StableKey()))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestSyncChunks_FailedChunkReturnsToNew(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	chunk := testChunk("connect", "connect() -> void")
	_, err := tr.SyncChunks(ctx, []types.DocumentChunk{chunk})
	require.NoError(t, err)
	require.NoError(t, tr.MarkFailed(ctx, chunk.StableKey(), "provider timeout"))
	require.NoError(t, tr.MarkFailed(ctx, chunk.StableKey(), "provider timeout"))

	result, err := tr.SyncChunks(ctx, []types.DocumentChunk{chunk})
	require.NoError(t, err)
	require.Len(t, result.New, 1)

	pending, err := tr.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	assert.Empty(t, pending[0].FailureReason)
}

func TestSyncChunks_DuplicateStableKeysProcessedOnce(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	a := testChunk("connect", "connect() -> void")
	b := testChunk("connect", "connect() -> void")
	result, err := tr.SyncChunks(ctx, []types.DocumentChunk{a, b})
	require.NoError(t, err)
	assert.Len(t, result.New, 1)
}

func TestMarkFailed_TracksRetriesAndReason(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := New(store)

	chunk := testChunk("connect", "connect() -> void")
	_, err := tr.SyncChunks(ctx, []types.DocumentChunk{chunk})
	require.NoError(t, err)

	require.NoError(t, tr.MarkFailed(ctx, chunk.StableKey(), "rate limited"))

	var state types.SyncState
	require.NoError(t, storage.GetJSON(ctx, store, storage.SyncKey(chunk.StableKey()), &state))
	assert.Equal(t, types.SyncFailed, state.Status)
	assert.Equal(t, 1, state.RetryCount)
	assert.Equal(t, "rate limited", state.FailureReason)
}

func TestMarkCompleted_PersistsRecordAndState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := New(store)

	chunk := testChunk("sendMessage", "sendMessage(text: string) -> Receipt")
	_, err := tr.SyncChunks(ctx, []types.DocumentChunk{chunk})
	require.NoError(t, err)
	require.NoError(t, tr.MarkCompleted(ctx, chunk.StableKey(), record(chunk)))

	var state types.SyncState
	require.NoError(t, storage.GetJSON(ctx, store, storage.SyncKey(chunk.StableKey()), &state))
	assert.Equal(t, types.SyncCompleted, state.Status)
	assert.Equal(t, "text-embedding-3-small", state.Model)

	records, err := tr.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, chunk.StableKey(), records[0].StableKey)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, records[0].Vector)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestMarkCompleted_UntrackedKeyIsTrackerError(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	err := tr.MarkCompleted(ctx, "method:ghost:client:poke:", types.EmbeddingRecord{})
	require.Error(t, err)
	var trackerErr *types.TrackerError
	require.ErrorAs(t, err, &trackerErr)
	assert.Equal(t, "complete", trackerErr.Op)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResetFailed(t *testing.T) {
	ctx := context.Background()
	tr := New(storage.NewMemoryStore())

	chunks := make([]types.DocumentChunk, 0, 15)
	for i := 0; i < 15; i++ {
		chunks = append(chunks, testChunk(fmt.Sprintf("method%02d", i), fmt.Sprintf("method%02d() -> void", i)))
	}
	result, err := tr.SyncChunks(ctx, chunks)
	require.NoError(t, err)
	require.Len(t, result.New, 15)

	for i, chunk := range result.New {
		if i < 5 {
			require.NoError(t, tr.MarkFailed(ctx, chunk.StableKey(), "quota exceeded"))
		} else {
			require.NoError(t, tr.MarkCompleted(ctx, chunk.StableKey(), record(chunk)))
		}
	}

	count, err := tr.ResetFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	stats, err := tr.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 5, Completed: 10, Total: 15}, stats)

	// Retry counts survive the reset.
	pending, err := tr.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 5)
	for _, state := range pending {
		assert.Equal(t, 1, state.RetryCount)
	}

	count, err = tr.ResetFailed(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNeedsEmbedding_Order(t *testing.T) {
	result := SyncResult{
		New:     []types.DocumentChunk{testChunk("a", "a")},
		Updated: []types.DocumentChunk{testChunk("b", "b")},
	}
	out := result.NeedsEmbedding()
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Metadata.MethodName)
	assert.Equal(t, "b", out[1].Metadata.MethodName)
}
