package chunker

import (
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// MethodLevelStrategy treats a method as atomic and splits a class into an
// overview chunk plus one chunk per embedded method section. Non-class,
// non-method content degrades to a single chunk.
type MethodLevelStrategy struct{}

// NewMethodLevel creates a MethodLevelStrategy
func NewMethodLevel() *MethodLevelStrategy {
	return &MethodLevelStrategy{}
}

// Name returns the strategy identifier
func (s *MethodLevelStrategy) Name() string { return "method-level" }

// ShouldSplit reports whether the unit produces more than one chunk
func (s *MethodLevelStrategy) ShouldSplit(c types.ParsedContent) bool {
	if c.Type != types.ContentClass {
		return false
	}
	return len(methodSections(c.Content)) > 0
}

// Split converts one unit into chunks
func (s *MethodLevelStrategy) Split(c types.ParsedContent) []types.DocumentChunk {
	switch c.Type {
	case types.ContentMethod:
		return []types.DocumentChunk{s.methodChunk(c)}
	case types.ContentClass:
		return s.splitClass(c)
	default:
		return []types.DocumentChunk{singleChunk(c)}
	}
}

func (s *MethodLevelStrategy) methodChunk(c types.ParsedContent) types.DocumentChunk {
	meta := c.Metadata
	meta.RelatedMethods = unionStrings(meta.RelatedMethods, InferRelatedMethods(meta.MethodName))
	meta.Dependencies = unionStrings(meta.Dependencies, InferDependencies(meta))
	return finalize(types.DocumentChunk{
		Content:  c.Content,
		Metadata: meta,
	})
}

// splitClass emits the class overview plus one chunk per "## name" method
// section embedded in the content. Spec-parsed classes carry their methods
// as separate units, so they stay a single overview chunk here.
func (s *MethodLevelStrategy) splitClass(c types.ParsedContent) []types.DocumentChunk {
	sections := methodSections(c.Content)
	if len(sections) == 0 {
		return []types.DocumentChunk{singleChunk(c)}
	}

	chunks := make([]types.DocumentChunk, 0, len(sections)+1)

	overview := strings.TrimSpace(c.Content[:sections[0].start])
	if overview != "" {
		meta := c.Metadata
		chunks = append(chunks, finalize(types.DocumentChunk{
			Content:  overview,
			Metadata: meta,
		}))
	}

	for _, sec := range sections {
		meta := c.Metadata
		meta.Type = types.ContentMethod
		meta.MethodName = sec.name
		meta.Section = ""
		meta.Tags = unionStrings(nil, c.Metadata.Tags) // own copy before mutation
		meta.RelatedMethods = unionStrings(nil, InferRelatedMethods(sec.name))
		meta.Dependencies = unionStrings(nil, InferDependencies(meta))
		meta.AddTags(strings.ToLower(sec.name))
		chunks = append(chunks, finalize(types.DocumentChunk{
			Content:  strings.TrimSpace(sec.text),
			Metadata: meta,
		}))
	}
	return chunks
}

// methodSection is one "## name" region of a class document
type methodSection struct {
	name  string
	text  string
	start int // byte offset of the heading in the content
}

// methodSections finds level-2 heading sections whose titles look like
// method names (a single identifier, optionally with a signature).
func methodSections(content string) []methodSection {
	headings := scanHeadings(content)
	lines := strings.Split(content, "\n")

	offsets := make([]int, len(lines))
	pos := 0
	for i, line := range lines {
		offsets[i] = pos
		pos += len(line) + 1
	}

	var sections []methodSection
	for i, h := range headings {
		if h.level != 2 || !looksLikeMethod(h.title) {
			continue
		}
		end := len(content)
		if i+1 < len(headings) {
			end = offsets[headings[i+1].line]
		}
		sections = append(sections, methodSection{
			name:  methodNameFromTitle(h.title),
			text:  content[offsets[h.line]:end],
			start: offsets[h.line],
		})
	}
	return sections
}

func looksLikeMethod(title string) bool {
	name := methodNameFromTitle(title)
	if name == "" || strings.ContainsAny(name, " \t") {
		return false
	}
	return strings.Contains(title, "(") || name == title
}

func methodNameFromTitle(title string) string {
	if idx := strings.Index(title, "("); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

// siblingGroups are the method families used for related-method inference.
// A method named with one family verb is related to the same name under the
// other verbs of its family.
var siblingGroups = [][]string{
	{"create", "get", "update", "delete", "list"},
	{"connect", "disconnect"},
	{"subscribe", "unsubscribe"},
	{"login", "logout"},
}

// InferRelatedMethods derives sibling method names from the verb family the
// name belongs to. The method itself is never included.
func InferRelatedMethods(name string) []string {
	lower := strings.ToLower(name)
	for _, group := range siblingGroups {
		for _, verb := range group {
			if !strings.HasPrefix(lower, verb) {
				continue
			}
			suffix := name[len(verb):]
			related := make([]string, 0, len(group)-1)
			for _, sibling := range group {
				if sibling == verb {
					continue
				}
				related = append(related, sibling+suffix)
			}
			return related
		}
	}
	return nil
}

// dependencyRules map namespace keywords to the call that must precede the
// method. Session-establishing methods themselves carry no dependencies.
var dependencyRules = []struct {
	keywords []string
	dep      string
}{
	{[]string{"messaging", "realtime", "stream", "socket", "channel", "presence"}, "connect"},
	{[]string{"auth", "account", "admin", "billing"}, "login"},
}

// InferDependencies derives prerequisite calls from the namespace and class
func InferDependencies(meta types.ChunkMetadata) []string {
	name := strings.ToLower(meta.MethodName)
	if strings.Contains(name, "connect") || strings.Contains(name, "login") {
		return nil
	}
	scope := strings.ToLower(meta.Namespace + " " + meta.ClassName)
	var deps []string
	for _, rule := range dependencyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(scope, kw) {
				deps = append(deps, rule.dep)
				break
			}
		}
	}
	return deps
}

// unionStrings merges b into a, preserving order and dropping duplicates
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
