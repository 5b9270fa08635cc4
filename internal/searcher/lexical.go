package searcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dshills/sdkdocs-mcp/internal/storage"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// lexicalIndex narrows bleve.Index to what the searcher needs.
type lexicalIndex = bleve.Index

// indexMapping analyzes content and names with the standard analyzer so
// matching is tokenized and case-insensitive, while filter fields use
// the keyword analyzer for exact term lookups. Filter field values are
// lowercased at both index and query time.
func indexMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false
	exact.IncludeInAll = false

	text := bleve.NewTextFieldMapping()
	text.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("class", text)
	doc.AddFieldMappingsAt("method", text)
	doc.AddFieldMappingsAt("tags", text)
	doc.AddFieldMappingsAt("namespace", exact)
	doc.AddFieldMappingsAt("type", exact)
	doc.AddFieldMappingsAt("importance", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// buildLexicalIndex creates an in-memory full-text index over the
// chunks, keyed by stable key.
func buildLexicalIndex(chunks map[string]types.DocumentChunk) (lexicalIndex, error) {
	index, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	batch := index.NewBatch()
	for key, chunk := range chunks {
		doc := map[string]any{
			"content":    chunk.Content,
			"class":      chunk.Metadata.ClassName,
			"method":     chunk.Metadata.MethodName,
			"tags":       chunk.Metadata.Tags,
			"namespace":  strings.ToLower(chunk.Metadata.Namespace),
			"type":       strings.ToLower(string(chunk.Metadata.Type)),
			"importance": strings.ToLower(string(chunk.Metadata.Importance)),
		}
		if err := batch.Index(key, doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index chunk %s: %w", key, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("commit index batch: %w", err)
	}
	return index, nil
}

// lexicalScores runs the full-text query, oversampled past the request
// limit, and normalizes scores against the top hit so the best lexical
// match scores 1.0. The read lock is held across the query so a
// concurrent Reindex cannot close the index underneath it.
func (s *Service) lexicalScores(ctx context.Context, req Request) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return map[string]float64{}, nil
	}

	q := buildQuery(req)
	search := bleve.NewSearchRequestOptions(q, req.Limit*oversample, 0, false)
	res, err := s.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	scores := make(map[string]float64, len(res.Hits))
	if len(res.Hits) == 0 {
		return scores, nil
	}
	top := res.Hits[0].Score
	if top <= 0 {
		top = 1
	}
	for _, hit := range res.Hits {
		scores[hit.ID] = hit.Score / top
	}
	return scores, nil
}

func buildQuery(req Request) query.Query {
	match := bleve.NewMatchQuery(req.Query)

	conjuncts := []query.Query{match}
	if req.Filters.Namespace != "" {
		conjuncts = append(conjuncts, termQuery("namespace", req.Filters.Namespace))
	}
	if req.Filters.Type != "" {
		conjuncts = append(conjuncts, termQuery("type", req.Filters.Type))
	}
	if req.Filters.Importance != "" {
		conjuncts = append(conjuncts, termQuery("importance", req.Filters.Importance))
	}
	if len(conjuncts) == 1 {
		return match
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

func termQuery(field, value string) query.Query {
	q := bleve.NewTermQuery(strings.ToLower(value))
	q.SetField(field)
	return q
}

// loadChunks reads every stored chunk, keyed by stable key.
func loadChunks(ctx context.Context, store storage.Store) (map[string]types.DocumentChunk, error) {
	pairs, err := store.Scan(ctx, storage.PrefixChunk)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	chunks := make(map[string]types.DocumentChunk, len(pairs))
	for key, data := range pairs {
		var chunk types.DocumentChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		chunks[strings.TrimPrefix(key, storage.PrefixChunk)] = chunk
	}
	return chunks, nil
}

// loadRecords reads every stored embedding record, keyed by stable key.
func loadRecords(ctx context.Context, store storage.Store) (map[string]types.EmbeddingRecord, error) {
	pairs, err := store.Scan(ctx, storage.PrefixEmbedding)
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	records := make(map[string]types.EmbeddingRecord, len(pairs))
	for key, data := range pairs {
		var record types.EmbeddingRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		records[strings.TrimPrefix(key, storage.PrefixEmbedding)] = record
	}
	return records, nil
}
