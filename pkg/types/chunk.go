package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Chunk sizing targets. Content outside these bounds is merged or re-split by
// the hybrid post-processor; they are targets, not hard limits at creation.
const (
	ChunkMinSize    = 200
	ChunkMaxSize    = 2000
	ChunkTargetSize = 1500
)

// ChunkMetadata carries the descriptive and relational metadata of a chunk.
// Type and Importance are closed enums; Tags has set semantics (no duplicates).
type ChunkMetadata struct {
	// Classification
	Type       ContentType
	Namespace  string
	ClassName  string
	MethodName string
	Section    string // Discriminates sibling chunks from one source unit: "overview", a bucket name, a heading slug, a split ordinal
	Importance Importance

	// Relations (id/name lookups only, never object references)
	Tags           []string
	RelatedMethods []string
	Dependencies   []string

	// Derived guidance
	CommonMistakes []string
	UseCases       []string

	// Provenance
	SourceFile string
	LineNumber int
}

// HasTag reports whether the metadata carries the given tag
func (m *ChunkMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTags appends tags preserving set semantics
func (m *ChunkMetadata) AddTags(tags ...string) {
	for _, tag := range tags {
		if tag != "" && !m.HasTag(tag) {
			m.Tags = append(m.Tags, tag)
		}
	}
}

// DocumentChunk is the smallest independently retrievable unit of indexed
// content. Any content edit produces a new content hash, which invalidates
// the stored embedding.
type DocumentChunk struct {
	ID       string
	Content  string
	Metadata ChunkMetadata

	// Populated after embedding generation; nil until then
	Embedding []float32
}

// StableKey returns the content-derived identity of the chunk, stable across
// runs over unchanged input. Synchronization state is keyed on this, never on
// ID, whose timestamp suffix changes every run.
func (c *DocumentChunk) StableKey() string {
	parts := make([]string, 0, 5)
	parts = append(parts, string(c.Metadata.Type))
	for _, p := range []string{c.Metadata.Namespace, c.Metadata.ClassName, c.Metadata.MethodName, c.Metadata.Section} {
		if s := sanitizeKeyPart(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}

// ContentHash returns the SHA-256 hex digest of the chunk content
func (c *DocumentChunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates the token count of the content.
// Simple heuristic: average token is ~4 characters.
func (c *DocumentChunk) EstimateTokens() int {
	return len(c.Content) / 4
}

// Validate performs structural validation of the chunk
func (c *DocumentChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID cannot be empty")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if !ValidContentType(c.Metadata.Type) {
		return fmt.Errorf("invalid chunk content type %q", c.Metadata.Type)
	}
	if !ValidImportance(c.Metadata.Importance) {
		return fmt.Errorf("invalid chunk importance %q", c.Metadata.Importance)
	}
	return nil
}

// NewChunkID builds a run-unique chunk ID from a stable key plus a millisecond
// timestamp suffix. Two runs over identical content produce different IDs but
// identical stable keys.
func NewChunkID(stableKey string) string {
	return fmt.Sprintf("%s-%d", stableKey, time.Now().UnixMilli())
}

func sanitizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
