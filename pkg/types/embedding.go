package types

import "time"

// EmbeddingRecord holds one generated vector for one chunk content version.
// Owned by the embedding service, persisted through the tracker.
type EmbeddingRecord struct {
	ChunkID    string
	StableKey  string
	Vector     []float32
	Model      string
	TokenCount int
	CreatedAt  time.Time
}

// SyncStatus is the embedding synchronization state of a chunk
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncState is the persistent per-chunk synchronization record, keyed by the
// chunk's stable key. Transitions: pending -> completed, pending -> failed,
// failed -> pending (on reset). The tracker is the sole owner.
type SyncState struct {
	StableKey     string
	ContentHash   string
	Status        SyncStatus
	RetryCount    int
	FailureReason string
	ChunkID       string // Last run-scoped ID observed for this key
	Model         string
	UpdatedAt     time.Time
}
