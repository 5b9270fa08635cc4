package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// SpecParser normalizes structured JSON API specifications. It walks the
// namespace -> class -> method/type tree and emits one ParsedContent per
// class, method, type, and namespace-level example.
type SpecParser struct{}

// NewSpecParser creates a SpecParser
func NewSpecParser() *SpecParser {
	return &SpecParser{}
}

// Wire schema of the structured spec format
type specDocument struct {
	SDK        string          `json:"sdk"`
	Version    string          `json:"version"`
	Namespaces []specNamespace `json:"namespaces"`
}

type specNamespace struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Classes     []specClass  `json:"classes"`
	Types       []specType   `json:"types"`
	Examples    []specSample `json:"examples"`
}

type specClass struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Constructor *specMethod    `json:"constructor"`
	Properties  []specProperty `json:"properties"`
	Methods     []specMethod   `json:"methods"`
}

type specMethod struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []specParameter `json:"parameters"`
	Returns     *specReturn     `json:"returns"`
	Examples    []string        `json:"examples"`
	Deprecated  bool            `json:"deprecated"`
}

type specParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
}

type specReturn struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type specProperty struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type specType struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Fields      []specProperty `json:"fields"`
}

type specSample struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

// CanParse accepts structured spec documents
func (p *SpecParser) CanParse(doc SourceDocument) bool {
	return doc.Format == FormatSpec
}

// Parse walks the spec tree. Malformed JSON fails the whole document with a
// ParseError; an empty spec produces no units.
func (p *SpecParser) Parse(doc SourceDocument) ([]types.ParsedContent, error) {
	var spec specDocument
	if err := json.Unmarshal(doc.Content, &spec); err != nil {
		return nil, types.NewParseError(doc.ID, "malformed spec JSON", err)
	}

	units := make([]types.ParsedContent, 0)
	for _, ns := range spec.Namespaces {
		for _, class := range ns.Classes {
			units = append(units, p.parseClass(doc, ns, class))
			for _, method := range class.Methods {
				units = append(units, p.parseMethod(doc, ns, class, method))
			}
		}
		for _, typ := range ns.Types {
			units = append(units, p.parseType(doc, ns, typ))
		}
		for _, sample := range ns.Examples {
			units = append(units, p.parseSample(doc, ns, sample))
		}
	}
	return units, nil
}

func (p *SpecParser) parseClass(doc SourceDocument, ns specNamespace, class specClass) types.ParsedContent {
	var b strings.Builder
	b.WriteString(class.Description)

	if class.Constructor != nil {
		b.WriteString("\n\nConstructor: ")
		b.WriteString(synthesizeSignature("new "+class.Name, class.Constructor.Parameters, nil))
		if class.Constructor.Description != "" {
			b.WriteString("\n")
			b.WriteString(class.Constructor.Description)
		}
	}

	if len(class.Properties) > 0 {
		b.WriteString("\n\nProperties:")
		for _, prop := range class.Properties {
			fmt.Fprintf(&b, "\n- %s (%s): %s", prop.Name, prop.Type, prop.Description)
		}
	}

	methodNames := make([]string, 0, len(class.Methods))
	if len(class.Methods) > 0 {
		b.WriteString("\n\nMethods:")
		for _, method := range class.Methods {
			methodNames = append(methodNames, method.Name)
			fmt.Fprintf(&b, "\n- %s", synthesizeSignature(method.Name, method.Parameters, method.Returns))
		}
	}

	meta := types.ChunkMetadata{
		Type:           types.ContentClass,
		Namespace:      ns.Name,
		ClassName:      class.Name,
		Importance:     classifyImportance(class.Name),
		RelatedMethods: methodNames,
		SourceFile:     doc.Path,
	}
	meta.AddTags(ns.Name, strings.ToLower(class.Name))

	return types.ParsedContent{
		Type:        types.ContentClass,
		Name:        class.Name,
		Description: class.Description,
		Content:     b.String(),
		Metadata:    meta,
	}
}

func (p *SpecParser) parseMethod(doc SourceDocument, ns specNamespace, class specClass, method specMethod) types.ParsedContent {
	signature := synthesizeSignature(method.Name, method.Parameters, method.Returns)

	var b strings.Builder
	b.WriteString(signature)
	b.WriteString("\n\n")
	b.WriteString(method.Description)

	if len(method.Parameters) > 0 {
		b.WriteString("\n\nParameters:")
		for _, param := range method.Parameters {
			optional := ""
			if param.Optional {
				optional = " (optional)"
			}
			fmt.Fprintf(&b, "\n- %s (%s)%s: %s", param.Name, param.Type, optional, param.Description)
		}
	}
	if method.Returns != nil {
		fmt.Fprintf(&b, "\n\nReturns %s: %s", method.Returns.Type, method.Returns.Description)
	}
	if method.Deprecated {
		b.WriteString("\n\nDeprecated: avoid in new code.")
	}

	meta := types.ChunkMetadata{
		Type:       types.ContentMethod,
		Namespace:  ns.Name,
		ClassName:  class.Name,
		MethodName: method.Name,
		Importance: classifyImportance(method.Name),
		SourceFile: doc.Path,
	}
	meta.AddTags(ns.Name, strings.ToLower(class.Name), strings.ToLower(method.Name))
	if method.Deprecated {
		meta.AddTags("deprecated")
	}

	params := make([]types.Parameter, 0, len(method.Parameters))
	for _, param := range method.Parameters {
		params = append(params, types.Parameter{
			Name:        param.Name,
			Type:        param.Type,
			Description: param.Description,
			Optional:    param.Optional,
		})
	}
	var returns []types.Return
	if method.Returns != nil {
		returns = []types.Return{{Type: method.Returns.Type, Description: method.Returns.Description}}
	}

	return types.ParsedContent{
		Type:        types.ContentMethod,
		Name:        method.Name,
		Description: method.Description,
		Content:     b.String(),
		Metadata:    meta,
		Examples:    method.Examples,
		Parameters:  params,
		Returns:     returns,
	}
}

func (p *SpecParser) parseType(doc SourceDocument, ns specNamespace, typ specType) types.ParsedContent {
	var b strings.Builder
	b.WriteString(typ.Description)
	if len(typ.Fields) > 0 {
		b.WriteString("\n\nFields:")
		for _, field := range typ.Fields {
			fmt.Fprintf(&b, "\n- %s (%s): %s", field.Name, field.Type, field.Description)
		}
	}

	meta := types.ChunkMetadata{
		Type:       types.ContentTypeDef,
		Namespace:  ns.Name,
		ClassName:  typ.Name,
		Importance: types.ImportanceMedium,
		SourceFile: doc.Path,
	}
	meta.AddTags(ns.Name, strings.ToLower(typ.Name), "type")

	return types.ParsedContent{
		Type:        types.ContentTypeDef,
		Name:        typ.Name,
		Description: typ.Description,
		Content:     b.String(),
		Metadata:    meta,
	}
}

func (p *SpecParser) parseSample(doc SourceDocument, ns specNamespace, sample specSample) types.ParsedContent {
	meta := types.ChunkMetadata{
		Type:       types.ContentExample,
		Namespace:  ns.Name,
		Importance: types.ImportanceMedium,
		SourceFile: doc.Path,
	}
	meta.AddTags(ns.Name, "example")

	return types.ParsedContent{
		Type:        types.ContentExample,
		Name:        sample.Title,
		Description: sample.Title,
		Content:     sample.Title + "\n\n" + sample.Code,
		Metadata:    meta,
		Examples:    []string{sample.Code},
	}
}

// synthesizeSignature renders "name(param: type, opt?: type) -> return"
func synthesizeSignature(name string, params []specParameter, returns *specReturn) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("(")
	for i, param := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(param.Name)
		if param.Optional {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(param.Type)
	}
	b.WriteString(")")
	if returns != nil && returns.Type != "" {
		b.WriteString(" -> ")
		b.WriteString(returns.Type)
	}
	return b.String()
}

// importanceRules assign importance by name substring. First match wins, so
// more specific prefixes (setup) precede their generic stems (set).
var importanceRules = []struct {
	substr string
	level  types.Importance
}{
	{"connect", types.ImportanceCritical},
	{"setup", types.ImportanceCritical},
	{"create", types.ImportanceCritical},
	{"init", types.ImportanceCritical},
	{"auth", types.ImportanceCritical},
	{"login", types.ImportanceCritical},
	{"send", types.ImportanceHigh},
	{"get", types.ImportanceHigh},
	{"update", types.ImportanceHigh},
	{"delete", types.ImportanceHigh},
	{"list", types.ImportanceHigh},
	{"subscribe", types.ImportanceHigh},
	{"config", types.ImportanceMedium},
	{"option", types.ImportanceMedium},
	{"set", types.ImportanceMedium},
}

func classifyImportance(name string) types.Importance {
	lower := strings.ToLower(name)
	for _, rule := range importanceRules {
		if strings.Contains(lower, rule.substr) {
			return rule.level
		}
	}
	return types.ImportanceLow
}
