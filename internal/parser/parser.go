package parser

import (
	"path/filepath"
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// Format identifies the raw document format
type Format string

const (
	FormatSpec     Format = "spec"     // Structured JSON API specification
	FormatMarkdown Format = "markdown" // Narrative documentation
)

// SourceDocument is one raw input document before parsing
type SourceDocument struct {
	ID      string
	Path    string
	Format  Format
	Content []byte

	// Workflow marks the document as an ordered step-by-step guide. Also
	// detected from front matter and filename by the markdown parser.
	Workflow bool
}

// DetectFormat infers the document format from its file extension
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatSpec
	default:
		return FormatMarkdown
	}
}

// Parser normalizes one raw document format into ParsedContent units
type Parser interface {
	CanParse(doc SourceDocument) bool
	Parse(doc SourceDocument) ([]types.ParsedContent, error)
}

// Registry dispatches documents to the first parser that accepts them
type Registry struct {
	parsers []Parser
}

// New creates a Registry with the built-in parsers registered
func New() *Registry {
	return &Registry{
		parsers: []Parser{
			NewSpecParser(),
			NewMarkdownParser(),
		},
	}
}

// Register appends a parser; later registrations have lower priority
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Parse normalizes the document. Parsing is a pure transformation: empty
// input produces an empty slice, and a failure affects only this document.
func (r *Registry) Parse(doc SourceDocument) ([]types.ParsedContent, error) {
	if len(doc.Content) == 0 {
		return []types.ParsedContent{}, nil
	}
	for _, p := range r.parsers {
		if p.CanParse(doc) {
			return p.Parse(doc)
		}
	}
	return nil, types.NewParseError(doc.ID, "no parser accepts format "+string(doc.Format), nil)
}
