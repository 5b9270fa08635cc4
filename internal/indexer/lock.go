package indexer

import (
	"errors"
	"sync/atomic"
)

// ErrIndexInProgress is returned by Run when another run holds the lock.
var ErrIndexInProgress = errors.New("an indexing run is already in progress")

// RunLock serializes indexing runs without blocking: a second caller is
// rejected instead of queued, since back-to-back runs over the same
// input would only repeat work.
type RunLock struct {
	held atomic.Bool
}

// TryAcquire attempts to take the lock, reporting success.
func (l *RunLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock. Call only after a successful TryAcquire.
func (l *RunLock) Release() {
	l.held.Store(false)
}
