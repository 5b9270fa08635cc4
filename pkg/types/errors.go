package types

import (
	"errors"
	"fmt"
)

// Domain errors for type validation
var (
	ErrMissingChunk = errors.New("search result chunk is required")
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("score must be between 0 and 1")
)

// ParseError reports a malformed source document. Parsing failures are
// isolated per document: siblings in the same batch proceed.
type ParseError struct {
	Source string // Document ID or path
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError builds a ParseError for the given source document
func NewParseError(source, reason string, err error) *ParseError {
	return &ParseError{Source: source, Reason: reason, Err: err}
}

// ValidationError reports a structural violation in one parsed unit. The unit
// is excluded from indexing; the batch continues.
type ValidationError struct {
	Unit   string // Name of the parsed unit
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validate %s: field %s: %s", e.Unit, e.Field, e.Reason)
	}
	return fmt.Sprintf("validate %s: %s", e.Unit, e.Reason)
}

// EmbeddingError reports a provider failure after retry exhaustion. It is
// recorded against the affected chunks and reported in the run summary,
// never propagated to the caller.
type EmbeddingError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// TrackerError reports a synchronization state persistence failure. Fatal:
// corrupted sync state risks double-embedding or silent loss, so indexing
// runs abort on it.
type TrackerError struct {
	Op  string
	Key string
	Err error
}

func (e *TrackerError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("tracker %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("tracker %s: %v", e.Op, e.Err)
}

func (e *TrackerError) Unwrap() error { return e.Err }
