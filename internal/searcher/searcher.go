package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/sdkdocs-mcp/internal/config"
	"github.com/dshills/sdkdocs-mcp/internal/embedder"
	"github.com/dshills/sdkdocs-mcp/internal/logger"
	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// Each path oversamples past the request limit so fusion has enough
// overlap to rank from
const oversample = 3

// Filters restrict the candidate set before either path scores it.
type Filters struct {
	Namespace  string
	Type       string
	Importance string
}

func (f Filters) matches(meta types.ChunkMetadata) bool {
	if f.Namespace != "" && !strings.EqualFold(f.Namespace, meta.Namespace) {
		return false
	}
	if f.Type != "" && !strings.EqualFold(f.Type, string(meta.Type)) {
		return false
	}
	if f.Importance != "" && !strings.EqualFold(f.Importance, string(meta.Importance)) {
		return false
	}
	return true
}

// Request is one search invocation. Zero-valued Limit and weights take
// the configured defaults; Semantic must be set explicitly because the
// zero value disables the vector path.
type Request struct {
	Query          string
	Limit          int
	Filters        Filters
	LexicalWeight  float64
	SemanticWeight float64
	Semantic       bool
}

// Response carries ranked results plus query diagnostics.
type Response struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
	LexicalHits  int
	SemanticHits int
}

type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Service answers search queries over the indexed chunks. Reads are
// concurrency-safe; Reindex swaps the whole in-memory state and is the
// only writer.
type Service struct {
	store    storage.Store
	embedder *embedder.Service
	cfg      config.SearchConfig
	log      *slog.Logger

	mu      sync.RWMutex
	index   lexicalIndex
	chunks  map[string]types.DocumentChunk
	records map[string]types.EmbeddingRecord

	cache *lru.Cache[[32]byte, *cacheEntry]
}

// NewService builds a search service. The embedding service may be nil;
// searches then run lexical-only.
func NewService(store storage.Store, emb *embedder.Service, cfg config.SearchConfig, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.LexicalWeight == 0 && cfg.SemanticWeight == 0 {
		cfg.LexicalWeight = config.DefaultLexicalWeight
		cfg.SemanticWeight = config.DefaultSemanticWeight
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = config.DefaultSearchLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = config.DefaultSearchMaxLimit
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = config.DefaultQueryCacheSize
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = config.DefaultQueryCacheTTLSec
	}

	cache, err := lru.New[[32]byte, *cacheEntry](cfg.CacheSize)
	if err != nil {
		cache, _ = lru.New[[32]byte, *cacheEntry](config.DefaultQueryCacheSize)
	}

	return &Service{
		store:    store,
		embedder: emb,
		cfg:      cfg,
		log:      log,
		chunks:   make(map[string]types.DocumentChunk),
		records:  make(map[string]types.EmbeddingRecord),
		cache:    cache,
	}
}

// Reindex rebuilds the in-memory search state from the store: every
// chunk into the lexical index, every embedding record into the vector
// candidate set. Called after each indexing run and at startup. The
// query cache is invalidated because any cached ranking may be stale.
func (s *Service) Reindex(ctx context.Context) error {
	chunks, err := loadChunks(ctx, s.store)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	records, err := loadRecords(ctx, s.store)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	index, err := buildLexicalIndex(chunks)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	s.mu.Lock()
	old := s.index
	s.index = index
	s.chunks = chunks
	s.records = records
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	s.cache.Purge()

	s.log.Info("search index rebuilt", "chunks", len(chunks), "embeddings", len(records))
	return nil
}

// Close releases the lexical index.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// pathResult carries one scoring path's output to the fusion step.
type pathResult struct {
	scores map[string]float64
	err    error
}

// Search runs the hybrid query pipeline: filter candidates, score the
// lexical and semantic paths in parallel, fuse, boost by importance,
// rank. One failing path degrades the search to the surviving path;
// only both failing is an error.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	key := cacheKey(req)
	if cached := s.fromCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(started)
		return cached, nil
	}

	candidates, candidateRecords := s.candidateSet(req.Filters)
	if len(candidates) == 0 {
		return &Response{Duration: time.Since(started)}, nil
	}

	semantic := req.Semantic && s.embedder != nil
	var lexical, vector pathResult

	if !semantic {
		scores, err := s.lexicalScores(ctx, req)
		if err != nil {
			return nil, err
		}
		lexical = pathResult{scores: scores}
	} else {
		lexicalChan := make(chan pathResult, 1)
		vectorChan := make(chan pathResult, 1)

		go func() {
			scores, err := s.lexicalScores(ctx, req)
			lexicalChan <- pathResult{scores: scores, err: err}
		}()
		go func() {
			scores, err := s.semanticScores(ctx, req, candidateRecords)
			vectorChan <- pathResult{scores: scores, err: err}
		}()

		for done := 0; done < 2; {
			select {
			case lexical = <-lexicalChan:
				done++
			case vector = <-vectorChan:
				done++
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if lexical.err != nil && vector.err != nil {
			return nil, fmt.Errorf("both search paths failed: lexical=%v, semantic=%v", lexical.err, vector.err)
		}
		if lexical.err != nil {
			s.log.Warn("lexical path failed, degrading to semantic only", "error", lexical.err)
			lexical.scores = nil
		}
		if vector.err != nil {
			s.log.Warn("semantic path failed, degrading to lexical only", "error", vector.err)
			vector.scores = nil
		}
	}

	results := fuse(lexical.scores, vector.scores, req, candidates)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	response := &Response{
		Results:      results,
		TotalResults: len(results),
		Duration:     time.Since(started),
		LexicalHits:  len(lexical.scores),
		SemanticHits: len(vector.scores),
	}
	if len(response.Results) > 0 {
		s.toCache(key, response)
	}
	return response, nil
}

// normalize fills request defaults and rejects malformed input.
func (s *Service) normalize(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.DefaultLimit
	}
	if req.Limit > s.cfg.MaxLimit {
		req.Limit = s.cfg.MaxLimit
	}
	if req.LexicalWeight == 0 && req.SemanticWeight == 0 {
		req.LexicalWeight = s.cfg.LexicalWeight
		req.SemanticWeight = s.cfg.SemanticWeight
	}
	if req.LexicalWeight < 0 || req.SemanticWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if sum := req.LexicalWeight + req.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("fusion weights must sum to 1.0, got %.2f", sum)
	}
	return nil
}

// candidateSet snapshots the chunks passing the filters, plus their
// embedding records for the semantic path.
func (s *Service) candidateSet(filters Filters) (map[string]types.DocumentChunk, []types.EmbeddingRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make(map[string]types.DocumentChunk)
	records := make([]types.EmbeddingRecord, 0, len(s.records))
	for key, chunk := range s.chunks {
		if !filters.matches(chunk.Metadata) {
			continue
		}
		candidates[key] = chunk
		if record, ok := s.records[key]; ok {
			records = append(records, record)
		}
	}
	return candidates, records
}

// semanticScores embeds the query and ranks candidate vectors by cosine
// similarity. Negative similarities are dropped so scores stay in [0,1].
func (s *Service) semanticScores(ctx context.Context, req Request, records []types.EmbeddingRecord) (map[string]float64, error) {
	if len(records) == 0 {
		return map[string]float64{}, nil
	}
	vector, err := s.embedder.GenerateQueryEmbedding(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	matches := embedder.FindSimilar(vector, records, req.Limit*oversample, 0)
	scores := make(map[string]float64, len(matches))
	for _, match := range matches {
		scores[match.StableKey] = math.Min(match.Score, 1.0)
	}
	return scores, nil
}

// fuse combines both score maps. A chunk scored by one path keeps that
// path's weighted score; importance boosts are deterministic and the
// final score never exceeds 1.0. Ties order by chunk ID.
func fuse(lexical, semantic map[string]float64, req Request, candidates map[string]types.DocumentChunk) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(lexical)+len(semantic))
	seen := make(map[string]bool, len(lexical)+len(semantic))

	score := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		chunk, ok := candidates[key]
		if !ok {
			return
		}
		lex := lexical[key]
		sem := semantic[key]
		fused := lex*req.LexicalWeight + sem*req.SemanticWeight
		fused *= chunk.Metadata.Importance.Weight()
		if fused > 1 {
			fused = 1
		}
		copied := copyChunk(chunk)
		results = append(results, types.SearchResult{
			Chunk:         &copied,
			LexicalScore:  lex,
			SemanticScore: sem,
			FusedScore:    fused,
		})
	}
	for key := range lexical {
		score(key)
	}
	for key := range semantic {
		score(key)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results
}

// GetChunk resolves a chunk by stable key or run-scoped ID.
func (s *Service) GetChunk(idOrKey string) (types.DocumentChunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if chunk, ok := s.chunks[idOrKey]; ok {
		return copyChunk(chunk), true
	}
	// Run-scoped IDs are the stable key plus a timestamp suffix.
	if i := strings.LastIndex(idOrKey, "-"); i > 0 {
		if chunk, ok := s.chunks[idOrKey[:i]]; ok {
			return copyChunk(chunk), true
		}
	}
	return types.DocumentChunk{}, false
}

// ChunkCount reports the number of indexed chunks.
func (s *Service) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Service) fromCache(key [32]byte) *Response {
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Service) toCache(key [32]byte, response *Response) {
	s.cache.Add(key, &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.cfg.CacheTTL()),
	})
}

// cacheKey hashes every request field that affects ranking.
func cacheKey(req Request) [32]byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%s|%s|%s|%.3f|%.3f|%t",
		req.Query, req.Limit,
		req.Filters.Namespace, req.Filters.Type, req.Filters.Importance,
		req.LexicalWeight, req.SemanticWeight, req.Semantic)
	return sha256.Sum256([]byte(b.String()))
}

// copyResponse deep-copies a response so cache entries stay isolated
// from caller mutations.
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, result := range src.Results {
		dst.Results[i] = result
		if result.Chunk != nil {
			copied := copyChunk(*result.Chunk)
			dst.Results[i].Chunk = &copied
		}
	}
	return &dst
}

// copyChunk clones a chunk including its slice-typed metadata fields.
func copyChunk(chunk types.DocumentChunk) types.DocumentChunk {
	out := chunk
	out.Embedding = append([]float32(nil), chunk.Embedding...)
	out.Metadata.Tags = append([]string(nil), chunk.Metadata.Tags...)
	out.Metadata.RelatedMethods = append([]string(nil), chunk.Metadata.RelatedMethods...)
	out.Metadata.Dependencies = append([]string(nil), chunk.Metadata.Dependencies...)
	out.Metadata.UseCases = append([]string(nil), chunk.Metadata.UseCases...)
	out.Metadata.CommonMistakes = append([]string(nil), chunk.Metadata.CommonMistakes...)
	return out
}
