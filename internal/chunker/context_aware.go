package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

const (
	// NarrativeSoftCap is the soft length limit for narrative segments
	NarrativeSoftCap = 1500

	// NarrativeOverlap is the trailing context carried into the next segment
	NarrativeOverlap = 200
)

// methodGroups are the fixed functional buckets, in classification order.
// First keyword match wins; unmatched methods land in Utilities.
var methodGroups = []struct {
	name      string
	rationale string
	keywords  []string
}{
	{"CRUD", "creating, reading, updating and deleting resources", []string{"create", "get", "update", "delete", "list", "fetch", "find", "remove", "add"}},
	{"Communication", "sending and receiving data", []string{"send", "publish", "subscribe", "unsubscribe", "receive", "broadcast", "emit", "message", "stream", "connect"}},
	{"Authentication", "identity and session management", []string{"auth", "login", "logout", "token", "session", "verify", "signin", "signout"}},
	{"Configuration", "tuning client behavior", []string{"config", "option", "set", "timeout", "retry", "interval"}},
	{"Utilities", "helper operations", nil},
}

// ContextAwareStrategy groups a large class's methods into functional
// buckets and splits long narrative content at heading and paragraph
// boundaries with a trailing overlap.
type ContextAwareStrategy struct {
	methods *MethodLevelStrategy
}

// NewContextAware creates a ContextAwareStrategy
func NewContextAware() *ContextAwareStrategy {
	return &ContextAwareStrategy{methods: NewMethodLevel()}
}

// Name returns the strategy identifier
func (s *ContextAwareStrategy) Name() string { return "context-aware" }

// ShouldSplit reports whether the unit produces more than one chunk
func (s *ContextAwareStrategy) ShouldSplit(c types.ParsedContent) bool {
	switch c.Type {
	case types.ContentClass:
		return len(c.Metadata.RelatedMethods) > 1
	case types.ContentMethod:
		return false
	default:
		return len(c.Content) > NarrativeSoftCap
	}
}

// Split converts one unit into chunks
func (s *ContextAwareStrategy) Split(c types.ParsedContent) []types.DocumentChunk {
	switch c.Type {
	case types.ContentClass:
		return s.bucketClass(c)
	case types.ContentMethod:
		return s.methods.Split(c)
	default:
		return s.splitNarrative(c)
	}
}

// bucketClass emits one chunk per non-empty functional group of the class's
// methods, each with generated rationale text.
func (s *ContextAwareStrategy) bucketClass(c types.ParsedContent) []types.DocumentChunk {
	names := c.Metadata.RelatedMethods
	if len(names) == 0 {
		for _, sec := range methodSections(c.Content) {
			names = append(names, sec.name)
		}
	}
	if len(names) == 0 {
		return []types.DocumentChunk{singleChunk(c)}
	}

	// Signature lines from the class body, when present
	sigs := make(map[string]string, len(names))
	for _, line := range strings.Split(c.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") && strings.Contains(trimmed, "(") {
			sig := strings.TrimSpace(trimmed[2:])
			sigs[methodNameFromTitle(sig)] = sig
		}
	}

	buckets := make(map[string][]string, len(methodGroups))
	for _, name := range names {
		buckets[classifyGroup(name)] = append(buckets[classifyGroup(name)], name)
	}

	chunks := make([]types.DocumentChunk, 0, len(methodGroups))
	for _, group := range methodGroups {
		members := buckets[group.name]
		if len(members) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Methods for %s on %s:\n", group.rationale, c.Name)
		for _, name := range members {
			if sig, ok := sigs[name]; ok {
				b.WriteString("- " + sig + "\n")
			} else {
				b.WriteString("- " + name + "\n")
			}
		}
		if c.Description != "" {
			b.WriteString("\n" + c.Description)
		}

		meta := c.Metadata
		meta.Section = strings.ToLower(group.name)
		meta.Tags = unionStrings(nil, c.Metadata.Tags)
		meta.RelatedMethods = unionStrings(nil, members)
		meta.AddTags(strings.ToLower(group.name))
		chunks = append(chunks, finalize(types.DocumentChunk{
			Content:  strings.TrimSpace(b.String()),
			Metadata: meta,
		}))
	}
	return chunks
}

// classifyGroup assigns a method name to its functional group
func classifyGroup(name string) string {
	lower := strings.ToLower(name)
	for _, group := range methodGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.name
			}
		}
	}
	return "Utilities"
}

// splitNarrative segments long prose at heading, then paragraph boundaries
// under the soft cap, carrying a trailing overlap into each next segment.
func (s *ContextAwareStrategy) splitNarrative(c types.ParsedContent) []types.DocumentChunk {
	segments := segmentText(c.Content, NarrativeSoftCap, NarrativeOverlap)
	if len(segments) <= 1 {
		return []types.DocumentChunk{singleChunk(c)}
	}

	base := c.Metadata.Section
	chunks := make([]types.DocumentChunk, 0, len(segments))
	for i, seg := range segments {
		meta := c.Metadata
		meta.Tags = unionStrings(nil, c.Metadata.Tags)
		if base != "" {
			meta.Section = fmt.Sprintf("%s-part%d", base, i+1)
		} else {
			meta.Section = fmt.Sprintf("part%d", i+1)
		}
		chunks = append(chunks, finalize(types.DocumentChunk{
			Content:  seg,
			Metadata: meta,
		}))
	}
	return chunks
}

// segmentText accumulates blocks into segments under the soft cap. A block
// that alone exceeds the cap stays whole; the hard cap is enforced later by
// size normalization.
func segmentText(text string, softCap, overlap int) []string {
	blocks := splitBlocks(text)
	var segments []string
	var cur strings.Builder

	for _, block := range blocks {
		if cur.Len() > 0 && cur.Len()+len(block)+2 > softCap {
			seg := strings.TrimSpace(cur.String())
			segments = append(segments, seg)
			cur.Reset()
			if tail := overlapTail(seg, overlap); tail != "" {
				cur.WriteString(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
	}
	if seg := strings.TrimSpace(cur.String()); seg != "" {
		segments = append(segments, seg)
	}
	return segments
}

// splitBlocks cuts text into paragraph blocks; a heading always starts a
// new block. Fenced code stays glued to its block.
func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	inFence := false

	flush := func() {
		if block := strings.TrimSpace(strings.Join(cur, "\n")); block != "" {
			blocks = append(blocks, block)
		}
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			cur = append(cur, line)
			continue
		}
		if inFence {
			cur = append(cur, line)
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			flush()
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// overlapTail returns the trailing overlap of a segment, trimmed forward to
// the nearest sentence or line boundary so the next segment starts clean.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 || len(text) <= overlap {
		return ""
	}
	start := len(text) - overlap
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	tail := text[start:]
	if idx := strings.IndexAny(tail, ".\n"); idx >= 0 && idx+1 < len(tail) {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
