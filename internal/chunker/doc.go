// Package chunker converts parsed documentation units into retrievable
// DocumentChunks using pluggable splitting strategies.
//
// # Strategies
//
// Three strategies cover the content shapes that occur in SDK docs:
//
//   - MethodLevelStrategy: methods are atomic; classes split into an
//     overview plus per-method sections.
//   - ContextAwareStrategy: large classes bucket their methods into five
//     functional groups (CRUD, Communication, Authentication,
//     Configuration, Utilities); long narrative content splits at heading
//     and paragraph boundaries with a trailing overlap.
//   - HierarchicalStrategy: heading-tree documents emit one chunk per
//     substantial node with a root-to-node breadcrumb and a subsection
//     summary.
//
// # Selection
//
// The HybridSelector classifies each unit by method count, section count,
// heading structure, length, and focus, then dispatches:
//
//	method                      -> method-level
//	class with > 5 methods      -> context-aware
//	strong heading hierarchy    -> hierarchical
//	example with > 3 sections   -> context-aware
//	everything else             -> method-level (single chunk)
//
// Selection never fails; unrecognized content degrades to one chunk.
//
// # Pipeline
//
//	c := chunker.New()
//	chunks := c.Chunk(units)
//
// Chunk applies the selected strategy per unit, then normalizes sizes
// (merging undersized neighbors, splitting oversized chunks) and finally
// cross-references chunks via related:<stablekey> tags. Post-processing is
// exclusive to this production path; ChunkWithStrategy returns raw
// strategy output.
//
// All chunking is pure and deterministic: identical input yields identical
// chunk content and metadata, with ids differing only in their timestamp
// suffix.
package chunker
