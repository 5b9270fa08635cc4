package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

func methodUnit(ns, class, name string) types.ParsedContent {
	return types.ParsedContent{
		Type:        types.ContentMethod,
		Name:        name,
		Description: "The " + name + " operation on " + class + ".",
		Content:     fmt.Sprintf("%s(id: string) -> Result\n\nThe %s operation on %s.", name, name, class),
		Metadata: types.ChunkMetadata{
			Type:       types.ContentMethod,
			Namespace:  ns,
			ClassName:  class,
			MethodName: name,
			Importance: types.ImportanceHigh,
			Tags:       []string{ns, strings.ToLower(class), strings.ToLower(name)},
		},
	}
}

func classUnit(ns, class string, methods []string) types.ParsedContent {
	var b strings.Builder
	b.WriteString("Client for the " + ns + " service.\n\nMethods:")
	for _, m := range methods {
		fmt.Fprintf(&b, "\n- %s(id: string) -> Result", m)
	}
	return types.ParsedContent{
		Type:        types.ContentClass,
		Name:        class,
		Description: "Client for the " + ns + " service.",
		Content:     b.String(),
		Metadata: types.ChunkMetadata{
			Type:           types.ContentClass,
			Namespace:      ns,
			ClassName:      class,
			Importance:     types.ImportanceHigh,
			RelatedMethods: methods,
			Tags:           []string{ns, strings.ToLower(class)},
		},
	}
}

// crudClassUnits is a class plus its per-method units, the shape the spec
// parser emits for one class.
func crudClassUnits() []types.ParsedContent {
	methods := []string{"create", "get", "update", "delete", "list", "connect", "disconnect"}
	units := []types.ParsedContent{classUnit("storage", "BucketClient", methods)}
	for _, m := range methods {
		units = append(units, methodUnit("storage", "BucketClient", m))
	}
	return units
}

func TestMethodLevel_ClassWithSevenMethods(t *testing.T) {
	units := crudClassUnits()

	c := New()
	chunks := c.ChunkWithStrategy(units, NewMethodLevel())
	require.Len(t, chunks, 8) // 1 overview + 7 methods

	byMethod := make(map[string]types.DocumentChunk)
	for _, ch := range chunks {
		byMethod[ch.Metadata.MethodName] = ch
	}

	create := byMethod["create"]
	assert.Subset(t, create.Metadata.RelatedMethods, []string{"get", "update", "delete", "list"})
	assert.NotContains(t, create.Metadata.RelatedMethods, "create")

	connect := byMethod["connect"]
	assert.Equal(t, []string{"disconnect"}, connect.Metadata.RelatedMethods)
	assert.Empty(t, connect.Metadata.Dependencies) // connect has no prerequisites

	overview := byMethod[""]
	assert.Equal(t, types.ContentClass, overview.Metadata.Type)
	assert.Contains(t, overview.Content, "Methods:")
}

func TestMethodLevel_ClassWithEmbeddedSections(t *testing.T) {
	content := strings.Join([]string{
		"Client for realtime presence.",
		"",
		"## join(channel: string)",
		"",
		"Joins a presence channel and starts broadcasting state.",
		"",
		"## leave(channel: string)",
		"",
		"Leaves the channel.",
	}, "\n")

	unit := types.ParsedContent{
		Type:        types.ContentClass,
		Name:        "PresenceClient",
		Description: "Client for realtime presence.",
		Content:     content,
		Metadata: types.ChunkMetadata{
			Type:       types.ContentClass,
			Namespace:  "presence",
			ClassName:  "PresenceClient",
			Importance: types.ImportanceMedium,
			Tags:       []string{"presence"},
		},
	}

	s := NewMethodLevel()
	assert.True(t, s.ShouldSplit(unit))
	chunks := s.Split(unit)
	require.Len(t, chunks, 3)

	assert.Equal(t, "join", chunks[1].Metadata.MethodName)
	assert.Equal(t, types.ContentMethod, chunks[1].Metadata.Type)
	assert.Contains(t, chunks[1].Content, "Joins a presence channel")
	assert.Contains(t, chunks[1].Metadata.Dependencies, "connect") // presence namespace rule
	assert.Equal(t, "leave", chunks[2].Metadata.MethodName)
	// Section copies must not share tag storage
	assert.NotContains(t, chunks[1].Metadata.Tags, "leave")
}

func TestInferRelatedMethods(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"createUser", []string{"getUser", "updateUser", "deleteUser", "listUser"}},
		{"delete", []string{"create", "get", "update", "list"}},
		{"disconnect", []string{"connect"}},
		{"subscribe", []string{"unsubscribe"}},
		{"logout", []string{"login"}},
		{"formatDate", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferRelatedMethods(tt.name), tt.name)
	}
}

func TestInferDependencies(t *testing.T) {
	meta := func(ns, method string) types.ChunkMetadata {
		return types.ChunkMetadata{Namespace: ns, MethodName: method}
	}

	assert.Equal(t, []string{"connect"}, InferDependencies(meta("messaging", "sendMessage")))
	assert.Equal(t, []string{"login"}, InferDependencies(meta("billing", "createInvoice")))
	assert.Nil(t, InferDependencies(meta("messaging", "connect")))
	assert.Nil(t, InferDependencies(meta("utils", "formatDate")))
}

func TestSelector_Dispatch(t *testing.T) {
	hierarchical := strings.Join([]string{
		"# Guide",
		"",
		"## First",
		"text",
		"",
		"## Second",
		"text",
	}, "\n")

	flatSections := strings.Join([]string{
		"## A", "a", "## B", "b", "## C", "c", "## D", "d",
	}, "\n")

	tests := []struct {
		name string
		unit types.ParsedContent
		want string
	}{
		{
			"method is atomic",
			methodUnit("storage", "BucketClient", "get"),
			"method-level",
		},
		{
			"large class groups",
			classUnit("storage", "BucketClient", []string{"a", "b", "c", "d", "e", "f", "g"}),
			"context-aware",
		},
		{
			"small class stays method-level",
			classUnit("storage", "BucketClient", []string{"a", "b"}),
			"method-level",
		},
		{
			"strong hierarchy",
			types.ParsedContent{Type: types.ContentExample, Name: "Guide", Content: hierarchical,
				Metadata: types.ChunkMetadata{Type: types.ContentExample}},
			"hierarchical",
		},
		{
			"sectioned example",
			types.ParsedContent{Type: types.ContentExample, Name: "Sections", Content: flatSections,
				Metadata: types.ChunkMetadata{Type: types.ContentExample}},
			"context-aware",
		},
		{
			"simple example single chunk",
			types.ParsedContent{Type: types.ContentExample, Name: "Tiny", Content: "one paragraph",
				Metadata: types.ChunkMetadata{Type: types.ContentExample}},
			"method-level",
		},
	}

	s := NewSelector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Select(tt.unit).Name())
		})
	}
}

func TestAnalyzeContent(t *testing.T) {
	content := strings.Join([]string{
		"# Top",
		"",
		"## One",
		"text",
		"## Two",
		"text",
		"### Deep",
		"text",
	}, "\n")

	profile := AnalyzeContent(types.ParsedContent{
		Type:     types.ContentExample,
		Content:  content,
		Metadata: types.ChunkMetadata{Type: types.ContentExample},
	})

	assert.Equal(t, 4, profile.SectionCount)
	assert.Equal(t, 1, profile.TopHeadings)
	assert.Equal(t, 2, profile.SecondHeadings)
	assert.Equal(t, 3, profile.HierarchyDepth)
	assert.Equal(t, ComplexitySimple, profile.Complexity)
	assert.Equal(t, FocusMixed, profile.Focus)
}

func TestContextAware_Buckets(t *testing.T) {
	unit := classUnit("messaging", "ChatClient",
		[]string{"create", "get", "sendMessage", "subscribe", "login", "setTimeout", "formatDate"})

	s := NewContextAware()
	chunks := s.Split(unit)
	require.Len(t, chunks, 5) // all five groups populated

	bySection := make(map[string]types.DocumentChunk)
	for _, ch := range chunks {
		bySection[ch.Metadata.Section] = ch
	}

	crud := bySection["crud"]
	assert.ElementsMatch(t, []string{"create", "get"}, crud.Metadata.RelatedMethods)
	assert.Contains(t, crud.Content, "Methods for creating")
	assert.Contains(t, crud.Content, "create(id: string) -> Result") // signature carried over

	comm := bySection["communication"]
	assert.ElementsMatch(t, []string{"sendMessage", "subscribe"}, comm.Metadata.RelatedMethods)

	assert.ElementsMatch(t, []string{"login"}, bySection["authentication"].Metadata.RelatedMethods)
	assert.ElementsMatch(t, []string{"setTimeout"}, bySection["configuration"].Metadata.RelatedMethods)
	assert.ElementsMatch(t, []string{"formatDate"}, bySection["utilities"].Metadata.RelatedMethods)

	// Bucket chunks carry distinct stable keys
	keys := make(map[string]bool)
	for _, ch := range chunks {
		keys[ch.StableKey()] = true
	}
	assert.Len(t, keys, 5)
}

func TestSegmentText_OverlapAtSentenceBoundary(t *testing.T) {
	para := func(i int) string {
		sentence := fmt.Sprintf("Paragraph %d explains one part of the connection lifecycle in detail. ", i)
		return strings.TrimSpace(strings.Repeat(sentence, 6))
	}
	text := strings.Join([]string{para(1), para(2), para(3), para(4)}, "\n\n")

	segments := segmentText(text, NarrativeSoftCap, NarrativeOverlap)
	require.Greater(t, len(segments), 1)

	for i, seg := range segments[:len(segments)-1] {
		assert.LessOrEqual(t, len(seg), NarrativeSoftCap+NarrativeOverlap, "segment %d", i)
	}

	// The second segment opens with overlap carried from the first, starting
	// at a sentence boundary.
	assert.True(t, strings.HasPrefix(segments[1], "Paragraph"),
		"overlap should start at a sentence boundary, got %q", segments[1][:40])
	overlap := segments[1][:strings.Index(segments[1], "\n\n")]
	assert.Contains(t, segments[0], overlap)
}

func TestHierarchical_BreadcrumbsAndSubsections(t *testing.T) {
	filler := strings.Repeat("Detail sentence covering behavior and edge cases. ", 3)
	content := strings.Join([]string{
		"# Guide",
		"",
		"Overview of the client library and how the pieces fit together for new users.",
		"",
		"## Setup",
		"",
		filler,
		"",
		"### Install",
		"",
		filler,
		"",
		"## Usage",
		"",
		filler,
	}, "\n")

	unit := types.ParsedContent{
		Type:        types.ContentExample,
		Name:        "SDK Guide",
		Description: "Overview of the client library.",
		Content:     content,
		Metadata: types.ChunkMetadata{
			Type: types.ContentExample,
			Tags: []string{"guide"},
		},
	}

	s := NewHierarchical()
	chunks := s.Split(unit)
	require.Len(t, chunks, 5) // root + Guide + Setup + Install + Usage

	sections := make(map[string]types.DocumentChunk)
	for _, ch := range chunks {
		sections[ch.Metadata.Section] = ch
	}
	require.Len(t, sections, 5) // all stable keys distinct

	setup := sections["sdk-guide-guide-setup"]
	assert.True(t, strings.HasPrefix(setup.Content, "SDK Guide > Guide > Setup"))
	assert.Contains(t, setup.Content, "Subsections: Install")

	install := sections["sdk-guide-guide-setup-install"]
	assert.True(t, strings.HasPrefix(install.Content, "SDK Guide > Guide > Setup > Install"))
	assert.NotContains(t, install.Content, "Subsections:")
}

func TestNormalizeSizes_MergesSmallNeighbors(t *testing.T) {
	small := func(class, method, text string) types.DocumentChunk {
		return finalize(types.DocumentChunk{
			Content: text,
			Metadata: types.ChunkMetadata{
				Type:       types.ContentMethod,
				Namespace:  "storage",
				ClassName:  class,
				MethodName: method,
				Importance: types.ImportanceMedium,
				Tags:       []string{strings.ToLower(method)},
			},
		})
	}

	a := small("BucketClient", "lock", "lock() acquires the bucket lease.")
	b := small("BucketClient", "unlock", "unlock() releases the bucket lease.")
	b.Metadata.Importance = types.ImportanceCritical
	other := small("ObjectClient", "stat", "stat() reads object metadata.")

	out := NormalizeSizes([]types.DocumentChunk{a, b, other}, types.ChunkMinSize, types.ChunkMaxSize)
	require.Len(t, out, 2) // a+b merged, other untouched

	merged := out[0]
	assert.Contains(t, merged.Content, "acquires")
	assert.Contains(t, merged.Content, "releases")
	assert.Equal(t, types.ImportanceCritical, merged.Metadata.Importance)
	assert.Empty(t, merged.Metadata.MethodName)
	assert.Equal(t, "lock-unlock", merged.Metadata.Section)
	assert.Subset(t, merged.Metadata.Tags, []string{"lock", "unlock"})

	assert.Equal(t, "ObjectClient", out[1].Metadata.ClassName)
}

func TestNormalizeSizes_SplitsOversized(t *testing.T) {
	para := strings.TrimSpace(strings.Repeat("A long explanatory sentence about retry semantics. ", 10))
	content := strings.Join([]string{para, para, para, para, para, para, para, para, para, para}, "\n\n")
	require.Greater(t, len(content), types.ChunkMaxSize)

	chunk := finalize(types.DocumentChunk{
		Content: content,
		Metadata: types.ChunkMetadata{
			Type:      types.ContentExample,
			Namespace: "guides",
			Section:   "retries",
		},
	})

	out := NormalizeSizes([]types.DocumentChunk{chunk}, types.ChunkMinSize, types.ChunkMaxSize)
	require.Greater(t, len(out), 1)

	seen := make(map[string]bool)
	for i, part := range out {
		assert.LessOrEqual(t, len(part.Content), types.ChunkMaxSize, "part %d", i)
		assert.Contains(t, part.Metadata.Section, "retries-part")
		assert.False(t, seen[part.ID], "ids must be re-derived per part")
		seen[part.ID] = true
	}
}

func TestCrossReference_LinksRelatedChunks(t *testing.T) {
	units := crudClassUnits()
	lone := types.ParsedContent{
		Type:        types.ContentExample,
		Name:        "Changelog",
		Description: "Historical release notes.",
		Content:     "Version history entries without overlap.",
		Metadata:    types.ChunkMetadata{Type: types.ContentExample, Namespace: "meta", Section: "changelog"},
	}

	c := New()
	chunks := c.ChunkWithStrategy(append(units, lone), NewMethodLevel())
	CrossReference(chunks)

	var createChunk, loneChunk types.DocumentChunk
	for _, ch := range chunks {
		switch {
		case ch.Metadata.MethodName == "create":
			createChunk = ch
		case ch.Metadata.Section == "changelog":
			loneChunk = ch
		}
	}

	relatedTags := 0
	for _, tag := range createChunk.Metadata.Tags {
		if strings.HasPrefix(tag, "related:") {
			relatedTags++
		}
	}
	assert.Greater(t, relatedTags, 0)
	assert.LessOrEqual(t, relatedTags, MaxCrossRefs)

	for _, tag := range loneChunk.Metadata.Tags {
		assert.False(t, strings.HasPrefix(tag, "related:"), "unrelated chunk got %s", tag)
	}
}

func TestChunk_SizeInvariant(t *testing.T) {
	longPara := strings.TrimSpace(strings.Repeat("Connection pooling guidance with concrete numbers. ", 12))
	units := append(crudClassUnits(), types.ParsedContent{
		Type:    types.ContentExample,
		Name:    "Pooling",
		Content: strings.Join([]string{longPara, longPara, longPara, longPara, longPara, longPara}, "\n\n"),
		Metadata: types.ChunkMetadata{
			Type:      types.ContentExample,
			Namespace: "guides",
			Section:   "pooling",
		},
	})

	chunks := New().Chunk(units)
	require.NotEmpty(t, chunks)

	for i, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), types.ChunkMaxSize, "chunk %d", i)
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if prev.Metadata.Namespace != cur.Metadata.Namespace || prev.Metadata.ClassName != cur.Metadata.ClassName {
			continue
		}
		combinable := len(prev.Content) < types.ChunkMinSize || len(cur.Content) < types.ChunkMinSize
		fits := len(prev.Content)+len(cur.Content)+2 <= types.ChunkMaxSize
		assert.False(t, combinable && fits, "chunks %d and %d should have been merged", i-1, i)
	}
}

func TestChunk_Idempotence(t *testing.T) {
	units := append(crudClassUnits(), types.ParsedContent{
		Type:    types.ContentExample,
		Name:    "Guide",
		Content: "# Guide\n\nShort setup notes.\n\n## First\ntext\n\n## Second\ntext",
		Metadata: types.ChunkMetadata{
			Type:      types.ContentExample,
			Namespace: "guides",
			Section:   "guide",
		},
	})

	first := New().Chunk(units)
	second := New().Chunk(units)
	require.Equal(t, len(first), len(second))

	for i := range first {
		assert.Equal(t, first[i].StableKey(), second[i].StableKey(), "chunk %d", i)
		assert.Equal(t, first[i].ContentHash(), second[i].ContentHash(), "chunk %d", i)
		assert.Equal(t, first[i].Metadata.Tags, second[i].Metadata.Tags, "chunk %d", i)
		assert.Equal(t, first[i].Metadata.RelatedMethods, second[i].Metadata.RelatedMethods, "chunk %d", i)
		// Ids share the stable prefix; only the timestamp suffix may differ
		assert.True(t, strings.HasPrefix(first[i].ID, first[i].StableKey()+"-"))
		assert.True(t, strings.HasPrefix(second[i].ID, first[i].StableKey()+"-"))
	}
}
