// Package enhancer adds derived metadata and guidance sections to chunks
// after splitting. Enhancement is purely additive and deterministic: no
// external calls, and re-enhancing an enhanced chunk is a no-op.
package enhancer

import (
	"fmt"
	"strings"

	"github.com/dshills/sdkdocs-mcp/internal/chunker"
	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// Options toggles each enhancement independently
type Options struct {
	RelatedMethods  bool
	UsagePatterns   bool
	Troubleshooting bool
	Dependencies    bool
	EnrichMetadata  bool

	// Patterns overrides the built-in usage snippets, keyed by
	// PatternKey(namespace, class, method)
	Patterns map[string]string
}

// DefaultOptions enables every enhancement
func DefaultOptions() Options {
	return Options{
		RelatedMethods:  true,
		UsagePatterns:   true,
		Troubleshooting: true,
		Dependencies:    true,
		EnrichMetadata:  true,
	}
}

// PatternKey builds the usage-pattern lookup key for a chunk scope
func PatternKey(namespace, class, method string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{namespace, class, method} {
		if p != "" {
			parts = append(parts, strings.ToLower(p))
		}
	}
	return strings.Join(parts, ".")
}

// usagePatterns are built-in snippet templates by method verb. %[1]s is the
// class name, %[2]s the method name.
var usagePatterns = []struct {
	verbs    []string
	template string
}{
	{[]string{"connect", "init", "setup"}, "const client = new %[1]s(config);\nawait client.%[2]s();"},
	{[]string{"send", "publish", "emit"}, "await client.%[2]s(target, payload);"},
	{[]string{"subscribe"}, "const subscription = client.%[2]s(topic, handler);"},
	{[]string{"create", "add"}, "const created = await client.%[2]s({ /* fields */ });"},
	{[]string{"get", "fetch", "find"}, "const item = await client.%[2]s(id);"},
	{[]string{"update"}, "await client.%[2]s(id, changes);"},
	{[]string{"delete", "remove"}, "await client.%[2]s(id);"},
	{[]string{"list"}, "const items = await client.%[2]s({ limit: 50 });"},
}

// troubleshootingRules map method-name substrings to known failure guidance
var troubleshootingRules = []struct {
	substrs []string
	advice  string
}{
	{[]string{"connect", "login"}, "Timeouts here are usually transient; retry with exponential backoff before failing over."},
	{[]string{"create", "update", "delete"}, "A permission error means the API key lacks write access to this resource."},
	{[]string{"send"}, "Oversized payloads are rejected; keep messages under the documented size limit."},
}

// useCaseRules map method-name substrings to a primary use case
var useCaseRules = []struct {
	substrs []string
	useCase string
}{
	{[]string{"connect", "init", "setup"}, "Application startup and connection establishment"},
	{[]string{"send", "publish", "emit"}, "Delivering events or messages to other clients"},
	{[]string{"subscribe"}, "Reacting to server-side events in real time"},
	{[]string{"create", "add"}, "Provisioning new resources"},
	{[]string{"get", "list", "fetch", "find"}, "Reading current resource state"},
	{[]string{"update"}, "Modifying existing resources"},
	{[]string{"delete", "remove"}, "Cleaning up resources that are no longer needed"},
}

// Enhance returns an enriched copy of the chunk. The input is never
// modified; disabled options leave their aspect untouched.
func Enhance(chunk types.DocumentChunk, opts Options) types.DocumentChunk {
	out := chunk
	meta := chunk.Metadata
	meta.Tags = append([]string(nil), chunk.Metadata.Tags...)

	if opts.RelatedMethods && meta.MethodName != "" && len(meta.RelatedMethods) == 0 {
		meta.RelatedMethods = chunker.InferRelatedMethods(meta.MethodName)
	}
	if opts.Dependencies && len(meta.Dependencies) == 0 {
		meta.Dependencies = chunker.InferDependencies(meta)
	}

	if opts.UsagePatterns {
		out.Content = appendSection(out.Content, "Usage:", usageSnippet(meta, opts.Patterns), true)
	}
	if opts.Troubleshooting {
		out.Content = appendSection(out.Content, "Troubleshooting:", troubleshootingFor(meta.MethodName), false)
	}

	if opts.EnrichMetadata {
		if len(meta.UseCases) == 0 {
			if uc := useCaseFor(meta.MethodName); uc != "" {
				meta.UseCases = []string{uc}
			}
		}
		if len(meta.CommonMistakes) == 0 {
			if advice := troubleshootingFor(meta.MethodName); advice != "" {
				meta.CommonMistakes = []string{advice}
			}
		}
		meta.AddTags(string(meta.Type))
		if meta.Importance != "" {
			meta.AddTags(string(meta.Importance))
		}
		if meta.Namespace != "" {
			meta.AddTags(strings.ToLower(meta.Namespace))
		}
		if meta.MethodName != "" {
			meta.AddTags(strings.ToLower(meta.MethodName))
		}
	}

	out.Metadata = meta
	return out
}

// EnhanceAll enhances every chunk with the same options
func EnhanceAll(chunks []types.DocumentChunk, opts Options) []types.DocumentChunk {
	out := make([]types.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		out[i] = Enhance(chunk, opts)
	}
	return out
}

// usageSnippet resolves the snippet for a chunk scope: explicit pattern
// table first, then verb templates. Empty when the chunk is not a method.
func usageSnippet(meta types.ChunkMetadata, patterns map[string]string) string {
	if meta.MethodName == "" {
		return ""
	}
	if snippet, ok := patterns[PatternKey(meta.Namespace, meta.ClassName, meta.MethodName)]; ok {
		return snippet
	}
	lower := strings.ToLower(meta.MethodName)
	class := meta.ClassName
	if class == "" {
		class = "Client"
	}
	for _, p := range usagePatterns {
		for _, verb := range p.verbs {
			if strings.Contains(lower, verb) {
				return fmt.Sprintf(p.template, class, meta.MethodName)
			}
		}
	}
	return ""
}

func troubleshootingFor(method string) string {
	lower := strings.ToLower(method)
	if lower == "" {
		return ""
	}
	for _, rule := range troubleshootingRules {
		for _, sub := range rule.substrs {
			if strings.Contains(lower, sub) {
				return rule.advice
			}
		}
	}
	return ""
}

func useCaseFor(method string) string {
	lower := strings.ToLower(method)
	if lower == "" {
		return ""
	}
	for _, rule := range useCaseRules {
		for _, sub := range rule.substrs {
			if strings.Contains(lower, sub) {
				return rule.useCase
			}
		}
	}
	return ""
}

// appendSection appends a titled section once. Re-enhancing never
// duplicates a section the content already carries.
func appendSection(content, title, body string, fenced bool) string {
	if body == "" || strings.Contains(content, "\n"+title) {
		return content
	}
	if fenced {
		body = "```\n" + body + "\n```"
	}
	return content + "\n\n" + title + "\n" + body
}
