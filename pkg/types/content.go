package types

// ContentType classifies a parsed documentation unit
type ContentType string

const (
	ContentMethod  ContentType = "method"
	ContentClass   ContentType = "class"
	ContentTypeDef ContentType = "type"
	ContentExample ContentType = "example"
)

// ValidContentType reports whether t is one of the closed set of content types
func ValidContentType(t ContentType) bool {
	switch t {
	case ContentMethod, ContentClass, ContentTypeDef, ContentExample:
		return true
	default:
		return false
	}
}

// Importance is a closed-enum priority tag used to bias ranking
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// ValidImportance reports whether i is one of the closed set of importance levels
func ValidImportance(i Importance) bool {
	switch i {
	case ImportanceCritical, ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	default:
		return false
	}
}

// Weight returns a deterministic ranking boost for the importance level
func (i Importance) Weight() float64 {
	switch i {
	case ImportanceCritical:
		return 1.15
	case ImportanceHigh:
		return 1.05
	default:
		return 1.0
	}
}

// Parameter describes one parameter of an SDK method
type Parameter struct {
	Name        string
	Type        string
	Description string
	Optional    bool
}

// Return describes the return value of an SDK method
type Return struct {
	Type        string
	Description string
}

// WorkflowStep is one ordered step extracted from a workflow document
type WorkflowStep struct {
	Number        int
	Title         string
	Description   string
	Example       string // At most one fenced code block per step
	Prerequisites []string
}

// ParsedContent is the normalized unit produced by a parser from one source
// section (a method, a class, a type definition, or a narrative doc section).
// It is immutable once produced and is the sole input to chunking.
type ParsedContent struct {
	// Identification
	Type ContentType
	Name string

	// Content
	Description string
	Content     string

	// Partial metadata filled by the parser; chunking strategies complete it
	Metadata ChunkMetadata

	// Structured extracts
	Examples   []string
	Parameters []Parameter
	Returns    []Return
	Steps      []WorkflowStep // Ordered; only populated for workflow documents
}

// IsWorkflow reports whether the unit carries ordered workflow steps
func (pc *ParsedContent) IsWorkflow() bool {
	return len(pc.Steps) > 0
}
