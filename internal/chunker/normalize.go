package chunker

import (
	"fmt"
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// importanceRank orders importance levels for merge resolution
var importanceRank = map[types.Importance]int{
	types.ImportanceLow:      0,
	types.ImportanceMedium:   1,
	types.ImportanceHigh:     2,
	types.ImportanceCritical: 3,
}

// NormalizeSizes merges undersized adjacent chunks and splits oversized
// ones. Merging applies only to consecutive chunks sharing namespace and
// class, when the combined length fits maxSize and at least one side is
// under minSize. Split parts get an ordinal section suffix and fresh ids.
func NormalizeSizes(chunks []types.DocumentChunk, minSize, maxSize int) []types.DocumentChunk {
	merged := mergeAdjacent(chunks, minSize, maxSize)

	out := make([]types.DocumentChunk, 0, len(merged))
	for _, chunk := range merged {
		if len(chunk.Content) > maxSize {
			out = append(out, splitOversized(chunk, maxSize)...)
		} else {
			out = append(out, chunk)
		}
	}
	return out
}

func mergeAdjacent(chunks []types.DocumentChunk, minSize, maxSize int) []types.DocumentChunk {
	out := make([]types.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if canMerge(prev, &chunk, minSize, maxSize) {
				prev.Content = prev.Content + "\n\n" + chunk.Content
				prev.Metadata = mergeMetadata(prev.Metadata, chunk.Metadata)
				prev.ID = types.NewChunkID(prev.StableKey())
				continue
			}
		}
		out = append(out, chunk)
	}
	return out
}

func canMerge(a, b *types.DocumentChunk, minSize, maxSize int) bool {
	if a.Metadata.Namespace != b.Metadata.Namespace || a.Metadata.ClassName != b.Metadata.ClassName {
		return false
	}
	if len(a.Content)+len(b.Content)+2 > maxSize {
		return false
	}
	return len(a.Content) < minSize || len(b.Content) < minSize
}

// mergeMetadata unions the two sides. Importance takes the higher level;
// differing method names collapse into a combined section identity so the
// merged chunk keeps a distinct stable key.
func mergeMetadata(a, b types.ChunkMetadata) types.ChunkMetadata {
	out := a
	if a.MethodName != b.MethodName {
		out.MethodName = ""
		out.Section = joinLabels(sectionLabel(a), sectionLabel(b))
	} else if a.Section != b.Section {
		out.Section = joinLabels(a.Section, b.Section)
	}
	if importanceRank[b.Importance] > importanceRank[a.Importance] {
		out.Importance = b.Importance
	}
	out.Tags = unionStrings(unionStrings(nil, a.Tags), b.Tags)
	out.RelatedMethods = unionStrings(unionStrings(nil, a.RelatedMethods), b.RelatedMethods)
	out.Dependencies = unionStrings(unionStrings(nil, a.Dependencies), b.Dependencies)
	out.CommonMistakes = unionStrings(unionStrings(nil, a.CommonMistakes), b.CommonMistakes)
	out.UseCases = unionStrings(unionStrings(nil, a.UseCases), b.UseCases)
	return out
}

func sectionLabel(m types.ChunkMetadata) string {
	if m.MethodName != "" {
		return strings.ToLower(m.MethodName)
	}
	return m.Section
}

func joinLabels(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "", a == b:
		return a
	default:
		return a + "-" + b
	}
}

// splitOversized cuts a chunk at heading boundaries, falling back to
// paragraphs, so every part fits maxSize.
func splitOversized(chunk types.DocumentChunk, maxSize int) []types.DocumentChunk {
	parts := accumulateBlocks(splitBlocks(chunk.Content), maxSize)
	if len(parts) <= 1 {
		return []types.DocumentChunk{chunk}
	}

	base := chunk.Metadata.Section
	out := make([]types.DocumentChunk, 0, len(parts))
	for i, part := range parts {
		meta := chunk.Metadata
		meta.Tags = unionStrings(nil, chunk.Metadata.Tags)
		if base != "" {
			meta.Section = fmt.Sprintf("%s-part%d", base, i+1)
		} else {
			meta.Section = fmt.Sprintf("part%d", i+1)
		}
		out = append(out, finalize(types.DocumentChunk{
			Content:  part,
			Metadata: meta,
		}))
	}
	return out
}

// accumulateBlocks packs blocks into parts not exceeding maxSize. A single
// block over the limit is hard-cut at a line or space boundary.
func accumulateBlocks(blocks []string, maxSize int) []string {
	var parts []string
	var cur strings.Builder

	flush := func() {
		if part := strings.TrimSpace(cur.String()); part != "" {
			parts = append(parts, part)
		}
		cur.Reset()
	}

	for _, block := range blocks {
		if len(block) > maxSize {
			flush()
			parts = append(parts, hardCut(block, maxSize)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(block)+2 > maxSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
	}
	flush()
	return parts
}

func hardCut(text string, maxSize int) []string {
	var parts []string
	for len(text) > maxSize {
		cut := maxSize
		if idx := strings.LastIndexAny(text[:maxSize], "\n "); idx > maxSize/2 {
			cut = idx
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
