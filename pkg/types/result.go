package types

// SearchResult is one ranked hit from a hybrid search. Scores are in [0,1];
// FusedScore = LexicalScore*lexicalWeight + SemanticScore*semanticWeight.
// Ephemeral and query-scoped, never persisted.
type SearchResult struct {
	Chunk *DocumentChunk
	Rank  int // Position in result set (1-based)

	LexicalScore  float64
	SemanticScore float64
	FusedScore    float64
}

// Validate checks if the search result is well-formed
func (sr *SearchResult) Validate() error {
	if sr.Chunk == nil {
		return ErrMissingChunk
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	for _, s := range []float64{sr.LexicalScore, sr.SemanticScore, sr.FusedScore} {
		if s < 0 || s > 1 {
			return ErrInvalidScore
		}
	}
	return nil
}
