// Package parser normalizes SDK documentation sources into ParsedContent units.
//
// Two source formats are supported: structured API specifications (JSON) and
// narrative markdown guides. A Registry dispatches each document to the first
// parser that accepts it, so new formats plug in without touching callers.
//
// # Basic Usage
//
//	reg := parser.New()
//	units, err := reg.Parse(parser.SourceDocument{
//	    ID:      "messaging-api",
//	    Path:    "docs/messaging.json",
//	    Format:  parser.DetectFormat("docs/messaging.json"),
//	    Content: data,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, unit := range units {
//	    fmt.Printf("%s: %s\n", unit.Type, unit.Name)
//	}
//
// # Structured Specifications
//
// SpecParser walks namespaces, classes, methods, types, and examples. Each
// method becomes one unit carrying a synthesized signature, parameter and
// return documentation, and an importance classification derived from the
// method name (connect/create/auth names rank critical, send/get/update
// rank high, configuration accessors rank medium, everything else low).
//
// # Narrative Documents
//
// MarkdownParser splits guides at the shallowest heading level present,
// keeping nested subsections inside each unit so hierarchy survives into
// chunking. Fenced code blocks are captured as runnable examples. Documents
// flagged as workflows (front matter, filename, or the Workflow field)
// collapse to a single unit with ordered WorkflowStep entries numbered from
// one, each carrying at most one code example and any prerequisite lines
// mined from the prose.
//
// # Error Handling
//
// A malformed document yields a ParseError naming the source; callers are
// expected to record it and continue with the remaining documents. Empty
// documents parse to an empty slice, never an error.
package parser
