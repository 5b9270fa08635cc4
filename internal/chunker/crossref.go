package chunker

import (
	"sort"
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

const (
	// CrossRefThreshold is the minimum similarity for a related link
	CrossRefThreshold = 0.3

	// MaxCrossRefs caps the related links attached per chunk
	MaxCrossRefs = 3
)

// Similarity weights
const (
	wNamespace = 0.3
	wClass     = 0.4
	wRelated   = 0.1  // per shared related method
	wTag       = 0.05 // per shared tag
	wJaccard   = 0.2  // times word-level content Jaccard
)

// CrossReference links each chunk to its most similar peers by attaching
// `related:<stablekey>` tags. Links are id lookups resolved at query time,
// never object references. Candidates are scored before any tag is written
// so the result is order-independent.
func CrossReference(chunks []types.DocumentChunk) {
	if len(chunks) < 2 {
		return
	}

	keys := make([]string, len(chunks))
	words := make([]map[string]struct{}, len(chunks))
	for i := range chunks {
		keys[i] = chunks[i].StableKey()
		words[i] = wordSet(chunks[i].Content)
	}

	related := make([][]string, len(chunks))
	for i := range chunks {
		type candidate struct {
			key   string
			score float64
		}
		var candidates []candidate
		for j := range chunks {
			if i == j {
				continue
			}
			score := similarity(&chunks[i].Metadata, &chunks[j].Metadata, words[i], words[j])
			if score > CrossRefThreshold {
				candidates = append(candidates, candidate{key: keys[j], score: score})
			}
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].score != candidates[b].score {
				return candidates[a].score > candidates[b].score
			}
			return candidates[a].key < candidates[b].key
		})
		if len(candidates) > MaxCrossRefs {
			candidates = candidates[:MaxCrossRefs]
		}
		for _, c := range candidates {
			related[i] = append(related[i], "related:"+c.key)
		}
	}

	for i := range chunks {
		chunks[i].Metadata.Tags = unionStrings(chunks[i].Metadata.Tags, related[i])
	}
}

// similarity scores two chunks on shared metadata and content vocabulary
func similarity(a, b *types.ChunkMetadata, wordsA, wordsB map[string]struct{}) float64 {
	score := 0.0
	if a.Namespace != "" && a.Namespace == b.Namespace {
		score += wNamespace
	}
	if a.ClassName != "" && a.ClassName == b.ClassName {
		score += wClass
	}
	score += wRelated * float64(sharedCount(a.RelatedMethods, b.RelatedMethods))
	score += wTag * float64(sharedTagCount(a.Tags, b.Tags))
	score += wJaccard * jaccard(wordsA, wordsB)
	return score
}

func sharedCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

// sharedTagCount ignores related: tags so re-running cross-referencing on
// already linked chunks scores identically
func sharedTagCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		if !strings.HasPrefix(v, "related:") {
			set[v] = struct{}{}
		}
	}
	n := 0
	for _, v := range b {
		if strings.HasPrefix(v, "related:") {
			continue
		}
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// wordSet lowercases and splits content on non-alphanumeric boundaries
func wordSet(content string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) > 2 { // skip stopword-sized noise
			set[w] = struct{}{}
		}
	}
	return set
}
