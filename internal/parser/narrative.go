package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// MarkdownParser normalizes narrative documentation. Regular documents split
// at top-level heading boundaries, keeping nested subsections inside each
// unit so downstream strategies can still see the hierarchy. Workflow
// documents collapse to a single unit with ordered steps.
type MarkdownParser struct {
	stepRe     *regexp.Regexp
	numberedRe *regexp.Regexp
	prereqRe   *regexp.Regexp
}

// NewMarkdownParser creates a MarkdownParser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		stepRe:     regexp.MustCompile(`(?i)^step\s+(\d+)\b`),
		numberedRe: regexp.MustCompile(`^(\d+)[.)]\s+`),
		prereqRe:   regexp.MustCompile(`(?i)\b(requires?|needs?|must (?:have|be|first)|before (?:you|starting)|prerequisites?)\b`),
	}
}

// frontMatter is the YAML block between leading --- markers
type frontMatter struct {
	Title     string   `yaml:"title"`
	Namespace string   `yaml:"namespace"`
	Workflow  bool     `yaml:"workflow"`
	Tags      []string `yaml:"tags"`
}

// section is one heading-delimited region of the document
type section struct {
	level int
	title string
	line  int // 1-based line of the heading in the source
	body  []string
}

// CanParse accepts narrative markdown documents
func (p *MarkdownParser) CanParse(doc SourceDocument) bool {
	return doc.Format == FormatMarkdown
}

// Parse splits the document into ParsedContent units. Empty documents
// produce no units, never an error.
func (p *MarkdownParser) Parse(doc SourceDocument) ([]types.ParsedContent, error) {
	fm, body, offset := splitFrontMatter(string(doc.Content))
	if strings.TrimSpace(body) == "" {
		return []types.ParsedContent{}, nil
	}

	sections := splitSections(body, offset)

	workflow := doc.Workflow || fm.Workflow ||
		strings.Contains(strings.ToLower(filepath.Base(doc.Path)), "workflow")
	if workflow {
		return p.parseWorkflow(doc, fm, sections, body), nil
	}
	return p.parseSections(doc, fm, sections), nil
}

// parseSections groups sections at the shallowest heading level present;
// deeper headings stay inside their parent unit.
func (p *MarkdownParser) parseSections(doc SourceDocument, fm frontMatter, sections []section) []types.ParsedContent {
	minLevel := 0
	for _, s := range sections {
		if s.level > 0 && (minLevel == 0 || s.level < minLevel) {
			minLevel = s.level
		}
	}

	units := make([]types.ParsedContent, 0, len(sections))
	var current *section
	flush := func() {
		if current == nil {
			return
		}
		if unit, ok := p.sectionUnit(doc, fm, *current); ok {
			units = append(units, unit)
		}
		current = nil
	}

	for _, s := range sections {
		if s.level == 0 || s.level == minLevel {
			flush()
			merged := s
			if merged.level == 0 && merged.title == "" {
				merged.title = docTitle(fm, doc)
			}
			current = &merged
			continue
		}
		// Nested heading: keep it inside the current unit as markdown
		if current == nil {
			merged := s
			current = &merged
			continue
		}
		current.body = append(current.body, "", strings.Repeat("#", s.level)+" "+s.title)
		current.body = append(current.body, s.body...)
	}
	flush()
	return units
}

func (p *MarkdownParser) sectionUnit(doc SourceDocument, fm frontMatter, s section) (types.ParsedContent, bool) {
	text := strings.TrimSpace(strings.Join(s.body, "\n"))
	if text == "" && s.title == "" {
		return types.ParsedContent{}, false
	}

	content := text
	if s.title != "" && s.level > 0 {
		content = strings.Repeat("#", s.level) + " " + s.title + "\n\n" + text
	}

	meta := types.ChunkMetadata{
		Type:       types.ContentExample,
		Namespace:  fm.Namespace,
		Section:    headingSlug(s.title),
		Importance: types.ImportanceMedium,
		SourceFile: doc.Path,
		LineNumber: s.line,
	}
	meta.AddTags("guide")
	meta.AddTags(fm.Tags...)
	if fm.Namespace != "" {
		meta.AddTags(fm.Namespace)
	}

	return types.ParsedContent{
		Type:        types.ContentExample,
		Name:        firstNonEmpty(s.title, docTitle(fm, doc)),
		Description: firstParagraph(s.body),
		Content:     content,
		Metadata:    meta,
		Examples:    extractFencedCode(s.body),
	}, true
}

// parseWorkflow emits exactly one unit holding the ordered steps
func (p *MarkdownParser) parseWorkflow(doc SourceDocument, fm frontMatter, sections []section, body string) []types.ParsedContent {
	steps := make([]types.WorkflowStep, 0)
	var title string
	var preamble []string

	for _, s := range sections {
		switch {
		case p.isStepHeading(s.title):
			code := extractFencedCode(s.body)
			example := ""
			if len(code) > 0 {
				example = code[0]
			}
			steps = append(steps, types.WorkflowStep{
				Number:        len(steps) + 1,
				Title:         p.stripStepPrefix(s.title),
				Description:   strings.TrimSpace(stripFencedCode(s.body)),
				Example:       example,
				Prerequisites: p.minePrerequisites(s.body),
			})
		case s.level > 0 && title == "":
			title = s.title
			preamble = append(preamble, s.body...)
		default:
			preamble = append(preamble, s.body...)
		}
	}

	meta := types.ChunkMetadata{
		Type:       types.ContentExample,
		Namespace:  fm.Namespace,
		Section:    headingSlug(firstNonEmpty(title, docTitle(fm, doc))),
		Importance: types.ImportanceHigh,
		SourceFile: doc.Path,
	}
	meta.AddTags("workflow")
	meta.AddTags(fm.Tags...)

	examples := make([]string, 0, len(steps))
	for _, step := range steps {
		if step.Example != "" {
			examples = append(examples, step.Example)
		}
	}

	return []types.ParsedContent{{
		Type:        types.ContentExample,
		Name:        firstNonEmpty(title, docTitle(fm, doc)),
		Description: firstParagraph(preamble),
		Content:     strings.TrimSpace(body),
		Metadata:    meta,
		Examples:    examples,
		Steps:       steps,
	}}
}

func (p *MarkdownParser) isStepHeading(title string) bool {
	return p.stepRe.MatchString(title) || p.numberedRe.MatchString(title)
}

func (p *MarkdownParser) stripStepPrefix(title string) string {
	if m := p.stepRe.FindString(title); m != "" {
		rest := strings.TrimSpace(title[len(m):])
		return strings.TrimSpace(strings.TrimLeft(rest, ":.-"))
	}
	if m := p.numberedRe.FindString(title); m != "" {
		return strings.TrimSpace(title[len(m):])
	}
	return title
}

// minePrerequisites collects lines that look like requirements
func (p *MarkdownParser) minePrerequisites(body []string) []string {
	var prereqs []string
	inFence := false
	for _, line := range body {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if trimmed != "" && p.prereqRe.MatchString(trimmed) {
			prereqs = append(prereqs, trimmed)
		}
	}
	return prereqs
}

// splitFrontMatter strips a leading YAML block delimited by --- lines.
// Returns the parsed front matter, the remaining body, and the number of
// lines consumed.
func splitFrontMatter(content string) (frontMatter, string, int) {
	var fm frontMatter
	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return fm, content, 0
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, content, 0
	}
	block := rest[:end]
	body := rest[end+4:]
	body = strings.TrimPrefix(body, "\n")
	// Tolerate malformed front matter: treat it as plain content
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return frontMatter{}, content, 0
	}
	return fm, body, strings.Count(block, "\n") + 3
}

// splitSections cuts the body at ATX headings, ignoring headings inside
// fenced code blocks. A leading preamble becomes a level-0 section.
func splitSections(body string, lineOffset int) []section {
	lines := strings.Split(body, "\n")
	sections := make([]section, 0)
	current := section{level: 0, line: lineOffset + 1}
	inFence := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			current.body = append(current.body, line)
			continue
		}
		if level, title, ok := parseHeading(line); ok && !inFence {
			if current.title != "" || strings.TrimSpace(strings.Join(current.body, "\n")) != "" {
				sections = append(sections, current)
			}
			current = section{level: level, title: title, line: lineOffset + i + 1}
			continue
		}
		current.body = append(current.body, line)
	}
	if current.title != "" || strings.TrimSpace(strings.Join(current.body, "\n")) != "" {
		sections = append(sections, current)
	}
	return sections
}

// parseHeading recognizes ATX headings: 1-6 # characters plus a title
func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(trimmed[level:]), true
}

// extractFencedCode returns the contents of ``` blocks in order
func extractFencedCode(body []string) []string {
	var blocks []string
	var buf []string
	inFence := false
	for _, line := range body {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inFence {
				blocks = append(blocks, strings.Join(buf, "\n"))
				buf = nil
			}
			inFence = !inFence
			continue
		}
		if inFence {
			buf = append(buf, line)
		}
	}
	return blocks
}

// stripFencedCode removes ``` blocks, leaving the prose
func stripFencedCode(body []string) string {
	var out []string
	inFence := false
	for _, line := range body {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// firstParagraph returns the first non-heading prose paragraph
func firstParagraph(body []string) string {
	var para []string
	inFence := false
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}
	return strings.Join(para, " ")
}

func headingSlug(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func docTitle(fm frontMatter, doc SourceDocument) string {
	if fm.Title != "" {
		return fm.Title
	}
	base := filepath.Base(doc.Path)
	if base != "" && base != "." {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return doc.ID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
