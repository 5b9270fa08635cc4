package chunker

import (
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// SubstantialNodeChars is the minimum own-text length for a childless
// heading node to earn its own chunk
const SubstantialNodeChars = 100

// HierarchicalStrategy builds a heading tree and emits one chunk per
// substantial node, each prefixed with a root-to-node breadcrumb and
// suffixed with a summary of its subsections.
type HierarchicalStrategy struct{}

// NewHierarchical creates a HierarchicalStrategy
func NewHierarchical() *HierarchicalStrategy {
	return &HierarchicalStrategy{}
}

// Name returns the strategy identifier
func (s *HierarchicalStrategy) Name() string { return "hierarchical" }

// ShouldSplit reports whether the unit produces more than one chunk
func (s *HierarchicalStrategy) ShouldSplit(c types.ParsedContent) bool {
	return len(scanHeadings(c.Content)) > 1
}

// Split converts one unit into per-node chunks
func (s *HierarchicalStrategy) Split(c types.ParsedContent) []types.DocumentChunk {
	root := buildHeadingTree(c)
	chunks := emitNodes(root, nil, c)
	if len(chunks) == 0 {
		return []types.DocumentChunk{singleChunk(c)}
	}
	return chunks
}

// headingNode is one node of the document heading tree
type headingNode struct {
	level    int
	title    string
	text     []string
	children []*headingNode
}

// buildHeadingTree parses the content into a tree with a stack. The root
// node holds the preamble before the first heading.
func buildHeadingTree(c types.ParsedContent) *headingNode {
	root := &headingNode{level: 0, title: c.Name}
	stack := []*headingNode{root}
	inFence := false

	for _, line := range strings.Split(c.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			top := stack[len(stack)-1]
			top.text = append(top.text, line)
			continue
		}

		level, title := headingLine(trimmed)
		if level == 0 || inFence {
			top := stack[len(stack)-1]
			top.text = append(top.text, line)
			continue
		}

		for len(stack) > 1 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		node := &headingNode{level: level, title: title}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}
	return root
}

// headingLine parses an ATX heading, returning level 0 for non-headings
func headingLine(trimmed string) (int, string) {
	if !strings.HasPrefix(trimmed, "#") {
		return 0, ""
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}

// emitNodes walks the tree depth-first, emitting a chunk per substantial
// node: own text over the threshold, or any children.
func emitNodes(n *headingNode, path []string, c types.ParsedContent) []types.DocumentChunk {
	path = append(path, n.title)
	text := strings.TrimSpace(strings.Join(n.text, "\n"))

	var chunks []types.DocumentChunk
	if len(text) > SubstantialNodeChars || len(n.children) > 0 {
		var b strings.Builder
		b.WriteString(strings.Join(path, " > "))
		if text != "" {
			b.WriteString("\n\n")
			b.WriteString(text)
		}
		if len(n.children) > 0 {
			titles := make([]string, 0, len(n.children))
			for _, child := range n.children {
				titles = append(titles, child.title)
			}
			b.WriteString("\n\nSubsections: ")
			b.WriteString(strings.Join(titles, ", "))
		}

		meta := c.Metadata
		meta.Tags = unionStrings(nil, c.Metadata.Tags)
		meta.Section = pathSlug(path)
		chunks = append(chunks, finalize(types.DocumentChunk{
			Content:  b.String(),
			Metadata: meta,
		}))
	}

	for _, child := range n.children {
		chunks = append(chunks, emitNodes(child, path, c)...)
	}
	return chunks
}

// pathSlug derives the section identity from the breadcrumb path
func pathSlug(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if slug := slugify(p); slug != "" {
			parts = append(parts, slug)
		}
	}
	return strings.Join(parts, "-")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
