package chunker

import (
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

const (
	// MaxMethodsForMethodLevel is the class size above which the selector
	// switches from method-level to context-aware grouping
	MaxMethodsForMethodLevel = 5

	// StrongHierarchySections is the flat section count above which content
	// is treated as hierarchical regardless of heading depth
	StrongHierarchySections = 5

	// ContextAwareSections is the section count above which example content
	// is split context-aware instead of kept whole
	ContextAwareSections = 3
)

// Strategy decides whether and how one parsed unit becomes chunks
type Strategy interface {
	Name() string
	ShouldSplit(c types.ParsedContent) bool
	Split(c types.ParsedContent) []types.DocumentChunk
}

// Complexity is a length-derived tier used by the selector
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"   // < 500 chars
	ComplexityModerate Complexity = "moderate" // 500-1500 chars
	ComplexityComplex  Complexity = "complex"  // > 1500 chars
)

// Focus is the primary audience orientation of a unit
type Focus string

const (
	FocusTutorial  Focus = "tutorial"
	FocusReference Focus = "reference"
	FocusMixed     Focus = "mixed"
)

// ContentProfile summarizes the shape of one parsed unit for dispatch
type ContentProfile struct {
	MethodCount    int
	SectionCount   int
	HierarchyDepth int
	TopHeadings    int // headings at the shallowest level present
	SecondHeadings int // headings one level below the shallowest
	Length         int
	Complexity     Complexity
	Focus          Focus
}

// AnalyzeContent builds the dispatch profile for one unit. Pure function.
func AnalyzeContent(c types.ParsedContent) ContentProfile {
	headings := scanHeadings(c.Content)

	profile := ContentProfile{
		SectionCount: len(headings),
		Length:       len(c.Content),
	}

	minLevel := 0
	levels := make(map[int]int)
	for _, h := range headings {
		levels[h.level]++
		if minLevel == 0 || h.level < minLevel {
			minLevel = h.level
		}
	}
	profile.HierarchyDepth = len(levels)
	profile.TopHeadings = levels[minLevel]
	profile.SecondHeadings = levels[minLevel+1]

	switch c.Type {
	case types.ContentMethod:
		profile.MethodCount = 1
	case types.ContentClass:
		profile.MethodCount = len(c.Metadata.RelatedMethods)
		if profile.MethodCount == 0 {
			for _, h := range headings {
				if strings.Contains(h.title, "(") {
					profile.MethodCount++
				}
			}
		}
	}

	switch {
	case profile.Length < 500:
		profile.Complexity = ComplexitySimple
	case profile.Length <= 1500:
		profile.Complexity = ComplexityModerate
	default:
		profile.Complexity = ComplexityComplex
	}

	switch {
	case c.Type == types.ContentExample && (c.IsWorkflow() || strings.Contains(c.Content, "```")):
		profile.Focus = FocusTutorial
	case c.Type == types.ContentExample:
		profile.Focus = FocusMixed
	default:
		profile.Focus = FocusReference
	}

	return profile
}

// HybridSelector picks the strategy for each unit. Selection never fails:
// anything unrecognized falls through to method-level, which degrades to a
// single chunk.
type HybridSelector struct {
	methodLevel  *MethodLevelStrategy
	contextAware *ContextAwareStrategy
	hierarchical *HierarchicalStrategy
}

// NewSelector creates a HybridSelector with all strategies registered
func NewSelector() *HybridSelector {
	return &HybridSelector{
		methodLevel:  NewMethodLevel(),
		contextAware: NewContextAware(),
		hierarchical: NewHierarchical(),
	}
}

// Select classifies the unit and returns the strategy to apply
func (s *HybridSelector) Select(c types.ParsedContent) Strategy {
	profile := AnalyzeContent(c)
	switch {
	case c.Type == types.ContentMethod:
		return s.methodLevel
	case c.Type == types.ContentClass && profile.MethodCount > MaxMethodsForMethodLevel:
		return s.contextAware
	case profile.TopHeadings >= 1 && profile.SecondHeadings > 1,
		profile.SectionCount > StrongHierarchySections:
		return s.hierarchical
	case c.Type == types.ContentExample && profile.SectionCount > ContextAwareSections:
		return s.contextAware
	default:
		return s.methodLevel
	}
}

// Chunker is the production chunking pipeline: hybrid strategy selection
// followed by size normalization and cross-referencing.
type Chunker struct {
	selector *HybridSelector
	minSize  int
	maxSize  int
}

// New creates a Chunker with the default size limits
func New() *Chunker {
	return NewWithLimits(types.ChunkMinSize, types.ChunkMaxSize)
}

// NewWithLimits creates a Chunker with explicit merge/split size limits
func NewWithLimits(minSize, maxSize int) *Chunker {
	return &Chunker{
		selector: NewSelector(),
		minSize:  minSize,
		maxSize:  maxSize,
	}
}

// Chunk converts parsed units into normalized, cross-referenced chunks.
// Units are processed in order; chunk order follows unit order.
func (c *Chunker) Chunk(units []types.ParsedContent) []types.DocumentChunk {
	chunks := make([]types.DocumentChunk, 0, len(units))
	for _, unit := range units {
		chunks = append(chunks, c.selector.Select(unit).Split(unit)...)
	}
	chunks = NormalizeSizes(chunks, c.minSize, c.maxSize)
	CrossReference(chunks)
	return chunks
}

// ChunkWithStrategy applies one strategy to every unit, bypassing selection
// and post-processing. Raw strategy output, mainly for targeted reindexing
// and tests.
func (c *Chunker) ChunkWithStrategy(units []types.ParsedContent, strategy Strategy) []types.DocumentChunk {
	chunks := make([]types.DocumentChunk, 0, len(units))
	for _, unit := range units {
		chunks = append(chunks, strategy.Split(unit)...)
	}
	return chunks
}

// heading is one ATX heading found in content
type heading struct {
	level int
	title string
	line  int
}

// scanHeadings lists ATX headings outside fenced code blocks
func scanHeadings(content string) []heading {
	var headings []heading
	inFence := false
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(trimmed, "#") {
			continue
		}
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		if level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
			continue
		}
		headings = append(headings, heading{
			level: level,
			title: strings.TrimSpace(trimmed[level:]),
			line:  i,
		})
	}
	return headings
}

// finalize assigns the chunk id derived from its metadata identity
func finalize(chunk types.DocumentChunk) types.DocumentChunk {
	chunk.ID = types.NewChunkID(chunk.StableKey())
	return chunk
}

// singleChunk wraps a whole unit as one chunk
func singleChunk(c types.ParsedContent) types.DocumentChunk {
	return finalize(types.DocumentChunk{
		Content:  c.Content,
		Metadata: c.Metadata,
	})
}
