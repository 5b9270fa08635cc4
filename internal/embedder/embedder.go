package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/logger"
	"github.com/dshills/sdkdocs-mcp/internal/tracker"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// MaxInputTokens bounds the embedding input per chunk. Inputs are
// truncated with the chars/4 token heuristic before the provider call.
const (
	MaxInputTokens = 8000
	maxInputChars  = MaxInputTokens * 4
)

// Report summarizes one embedding run. A run with failed batches still
// returns a Report: failures are recorded in the tracker and listed in
// Errors, never raised.
type Report struct {
	JobID          string
	Results        []types.EmbeddingRecord
	TotalTokens    int
	ProcessingTime time.Duration
	Errors         []string
}

// Service drives batched embedding generation against an injected
// Provider, recording per-chunk progress in the tracker as it goes.
type Service struct {
	provider  Provider
	tracker   *tracker.Tracker
	limiter   *rate.Limiter
	cache     *lru.Cache[string, types.EmbeddingRecord]
	log       *slog.Logger
	batchSize int
	retry     RetryConfig
}

// NewService wires a Service from config. The tracker may be nil for a
// query-only service; GenerateEmbeddings then refuses to run.
func NewService(provider Provider, tr *tracker.Tracker, cfg config.EmbeddingConfig, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = config.DefaultCacheSize
	}
	cache, err := lru.New[string, types.EmbeddingRecord](cacheSize)
	if err != nil {
		cache, _ = lru.New[string, types.EmbeddingRecord](config.DefaultCacheSize)
	}

	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelayMs > 0 {
		retry.BaseDelay = cfg.RetryDelay()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay := cfg.BatchDelay(); delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	return &Service{
		provider:  provider,
		tracker:   tr,
		limiter:   limiter,
		cache:     cache,
		log:       log,
		batchSize: batchSize,
		retry:     retry,
	}
}

// Close releases the underlying provider.
func (s *Service) Close() error {
	return s.provider.Close()
}

type embedResult struct {
	vectors [][]float32
	tokens  int
}

// GenerateEmbeddings embeds chunks in batches. Each batch waits on the
// rate limiter, then calls the provider with exponential-backoff retry.
// A batch that exhausts its retries marks every chunk in it failed and
// the run moves on; a successful batch marks its chunks completed
// immediately, so progress survives later failures. Only tracker
// persistence errors and cancellation abort the run. Cancellation is
// checked at batch boundaries.
func (s *Service) GenerateEmbeddings(ctx context.Context, chunks []types.DocumentChunk) (*Report, error) {
	started := time.Now()
	report := &Report{JobID: uuid.NewString()}
	if s.tracker == nil {
		return nil, fmt.Errorf("embedding service has no tracker")
	}
	if len(chunks) == 0 {
		report.ProcessingTime = time.Since(started)
		return report, nil
	}

	batchNum := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run cancelled after %d chunks: %v", len(report.Results), err))
			report.ProcessingTime = time.Since(started)
			return report, err
		}
		batchNum++
		end := min(start+s.batchSize, len(chunks))

		if err := s.embedBatch(ctx, batchNum, chunks[start:end], report); err != nil {
			report.ProcessingTime = time.Since(started)
			return report, err
		}
	}

	report.ProcessingTime = time.Since(started)
	s.log.Info("embedding run finished",
		"job_id", report.JobID,
		"chunks", len(chunks),
		"embedded", len(report.Results),
		"failed_batches", len(report.Errors),
		"tokens", report.TotalTokens,
		"duration", report.ProcessingTime)
	return report, nil
}

// embedBatch embeds one batch, serving cache hits without a provider
// call. Returned errors are fatal to the run; provider exhaustion is
// recorded and swallowed.
func (s *Service) embedBatch(ctx context.Context, batchNum int, batch []types.DocumentChunk, report *Report) error {
	toEmbed := make([]types.DocumentChunk, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, chunk := range batch {
		hash := chunk.ContentHash()
		if cached, ok := s.cache.Get(hash); ok {
			record := cached
			record.Vector = cloneVector(cached.Vector)
			record.ChunkID = chunk.ID
			record.StableKey = chunk.StableKey()
			if err := s.tracker.MarkCompleted(ctx, record.StableKey, record); err != nil {
				return err
			}
			report.Results = append(report.Results, record)
			continue
		}
		toEmbed = append(toEmbed, chunk)
		texts = append(texts, buildInput(chunk))
	}
	if len(toEmbed) == 0 {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("run cancelled after %d chunks: %v", len(report.Results), err))
		return err
	}

	result, err := retryWithBackoff(ctx, s.retry, func() (embedResult, error) {
		vectors, tokens, err := s.provider.Embed(ctx, texts)
		if err != nil {
			return embedResult{}, err
		}
		if len(vectors) != len(texts) {
			return embedResult{}, fmt.Errorf("%w: %d texts sent, %d vectors returned", ErrProviderFailed, len(texts), len(vectors))
		}
		return embedResult{vectors: vectors, tokens: tokens}, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run cancelled after %d chunks: %v", len(report.Results), ctxErr))
			return ctxErr
		}
		embErr := &types.EmbeddingError{Batch: batchNum, Attempts: s.retry.MaxRetries, Err: err}
		s.log.Warn("embedding batch failed", "batch", batchNum, "chunks", len(toEmbed), "error", err)
		report.Errors = append(report.Errors, embErr.Error())
		for _, chunk := range toEmbed {
			if terr := s.tracker.MarkFailed(ctx, chunk.StableKey(), embErr.Error()); terr != nil {
				return terr
			}
		}
		return nil
	}

	now := time.Now().UTC()
	for i, chunk := range toEmbed {
		record := types.EmbeddingRecord{
			ChunkID:    chunk.ID,
			StableKey:  chunk.StableKey(),
			Vector:     result.vectors[i],
			Model:      s.provider.Model(),
			TokenCount: chunk.EstimateTokens(),
			CreatedAt:  now,
		}
		if err := s.tracker.MarkCompleted(ctx, record.StableKey, record); err != nil {
			return err
		}
		s.cache.Add(chunk.ContentHash(), record)
		report.Results = append(report.Results, record)
	}
	report.TotalTokens += result.tokens
	s.log.Debug("embedding batch completed", "batch", batchNum, "chunks", len(toEmbed), "tokens", result.tokens)
	return nil
}

// GenerateQueryEmbedding embeds one query string, serving repeats from
// the cache.
func (s *Service) GenerateQueryEmbedding(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	hash := hashText(trimmed)
	if cached, ok := s.cache.Get(hash); ok {
		return cloneVector(cached.Vector), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := retryWithBackoff(ctx, s.retry, func() (embedResult, error) {
		vectors, tokens, err := s.provider.Embed(ctx, []string{truncateText(trimmed, maxInputChars)})
		if err != nil {
			return embedResult{}, err
		}
		if len(vectors) != 1 {
			return embedResult{}, fmt.Errorf("%w: expected 1 vector, got %d", ErrProviderFailed, len(vectors))
		}
		return embedResult{vectors: vectors, tokens: tokens}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	s.cache.Add(hash, types.EmbeddingRecord{
		Vector:     result.vectors[0],
		Model:      s.provider.Model(),
		TokenCount: result.tokens,
		CreatedAt:  time.Now().UTC(),
	})
	return cloneVector(result.vectors[0]), nil
}

// Match is one similarity hit against the stored embeddings.
type Match struct {
	StableKey string
	ChunkID   string
	Score     float64
}

// FindSimilar ranks candidate records by cosine similarity to the query
// vector. Scores below threshold are dropped; ties order by stable key
// so results are reproducible. A non-positive limit returns every match.
func FindSimilar(query []float32, candidates []types.EmbeddingRecord, limit int, threshold float64) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, record := range candidates {
		score := Cosine(query, record.Vector)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{
			StableKey: record.StableKey,
			ChunkID:   record.ChunkID,
			Score:     score,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].StableKey < matches[j].StableKey
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-length inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// buildInput prefixes the chunk content with its metadata so the vector
// captures where the content lives, not just what it says.
func buildInput(chunk types.DocumentChunk) string {
	var b strings.Builder
	meta := chunk.Metadata
	if meta.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", meta.Type)
	}
	if meta.Namespace != "" {
		fmt.Fprintf(&b, "Namespace: %s\n", meta.Namespace)
	}
	if meta.ClassName != "" {
		fmt.Fprintf(&b, "Class: %s\n", meta.ClassName)
	}
	if meta.MethodName != "" {
		fmt.Fprintf(&b, "Method: %s\n", meta.MethodName)
	}
	b.WriteString("\n")
	b.WriteString(chunk.Content)
	return truncateText(b.String(), maxInputChars)
}

// truncateText cuts s to at most limit bytes on a rune boundary.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// hashText hashes query text the same way chunks hash content, so a
// query identical to indexed content shares its cache entry.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
