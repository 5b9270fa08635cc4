// Package validator performs structural checks on parsed content before it
// enters the chunking pipeline. Errors exclude a unit from indexing;
// warnings are advisory and logged only.
package validator

import (
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

const minDescriptionLen = 20

// Result is the outcome of validating one parsed unit
type Result struct {
	Name     string
	Valid    bool
	Errors   []types.ValidationError
	Warnings []string
}

// BatchResult aggregates per-unit results for one document batch
type BatchResult struct {
	Results      []Result
	ValidCount   int
	InvalidCount int
	valid        []types.ParsedContent
}

// Valid returns the units that passed validation, in input order
func (b *BatchResult) Valid() []types.ParsedContent {
	return b.valid
}

// Validate checks one parsed unit. Structural violations become errors,
// quality issues become warnings.
func Validate(content types.ParsedContent) Result {
	res := Result{Name: content.Name}

	if strings.TrimSpace(content.Name) == "" {
		res.Errors = append(res.Errors, types.ValidationError{
			Unit: content.Name, Field: "name", Reason: "name is required",
		})
	}
	if strings.TrimSpace(content.Content) == "" {
		res.Errors = append(res.Errors, types.ValidationError{
			Unit: content.Name, Field: "content", Reason: "content is required",
		})
	}
	if !types.ValidContentType(content.Type) {
		res.Errors = append(res.Errors, types.ValidationError{
			Unit: content.Name, Field: "type", Reason: "unknown content type " + string(content.Type),
		})
	}
	if content.Metadata.Importance != "" && !types.ValidImportance(content.Metadata.Importance) {
		res.Errors = append(res.Errors, types.ValidationError{
			Unit: content.Name, Field: "importance", Reason: "unknown importance " + string(content.Metadata.Importance),
		})
	}
	if content.Type == types.ContentMethod && strings.TrimSpace(content.Metadata.Namespace) == "" {
		res.Errors = append(res.Errors, types.ValidationError{
			Unit: content.Name, Field: "namespace", Reason: "method content requires a namespace",
		})
	}

	if len(content.Description) < minDescriptionLen {
		res.Warnings = append(res.Warnings, "description shorter than 20 characters")
	}
	if len(content.Metadata.Tags) == 0 {
		res.Warnings = append(res.Warnings, "no tags set")
	}
	if content.Type == types.ContentMethod && !strings.Contains(content.Content, "(") {
		res.Warnings = append(res.Warnings, "method content has no signature")
	}
	if content.Type == types.ContentExample && len(content.Examples) == 0 && !content.IsWorkflow() {
		res.Warnings = append(res.Warnings, "example content has no code samples")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateBatch validates every unit. Invalid units are reported and
// skipped; the batch itself never fails.
func ValidateBatch(contents []types.ParsedContent) BatchResult {
	batch := BatchResult{
		Results: make([]Result, 0, len(contents)),
		valid:   make([]types.ParsedContent, 0, len(contents)),
	}
	for _, c := range contents {
		res := Validate(c)
		batch.Results = append(batch.Results, res)
		if res.Valid {
			batch.ValidCount++
			batch.valid = append(batch.valid, c)
		} else {
			batch.InvalidCount++
		}
	}
	return batch
}
