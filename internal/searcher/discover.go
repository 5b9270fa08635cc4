package searcher

import (
	"sort"
	"strings"

	"github.com/dshills/sdkdocs-mcp/pkg/types"
)

// APIMethod is one method surfaced by discovery.
type APIMethod struct {
	Name       string `json:"name"`
	StableKey  string `json:"stableKey"`
	Importance string `json:"importance"`
	Deprecated bool   `json:"deprecated,omitempty"`
}

// APIClass groups the discovered methods of one class.
type APIClass struct {
	Name    string      `json:"name"`
	Methods []APIMethod `json:"methods"`
}

// APIGroup is the per-namespace root of the discovery tree.
type APIGroup struct {
	Namespace string     `json:"namespace"`
	Classes   []APIClass `json:"classes"`
}

// DiscoverAPI walks the indexed method chunks and returns the API
// surface as namespace > class > method. An empty namespace covers all
// namespaces; a keyword keeps only methods whose name contains it,
// case-insensitively. Groups, classes, and methods sort by name.
func (s *Service) DiscoverAPI(namespace, keyword string) []APIGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword = strings.ToLower(strings.TrimSpace(keyword))

	// namespace -> class -> method name -> entry. A method split into
	// sibling section chunks collapses to one entry; the smallest stable
	// key wins, which prefers the sectionless chunk over its sections.
	tree := make(map[string]map[string]map[string]APIMethod)
	for key, chunk := range s.chunks {
		meta := chunk.Metadata
		if meta.Type != types.ContentMethod || meta.MethodName == "" {
			continue
		}
		if namespace != "" && !strings.EqualFold(namespace, meta.Namespace) {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(meta.MethodName), keyword) {
			continue
		}
		className := meta.ClassName
		if className == "" {
			className = meta.Namespace
		}
		if tree[meta.Namespace] == nil {
			tree[meta.Namespace] = make(map[string]map[string]APIMethod)
		}
		if tree[meta.Namespace][className] == nil {
			tree[meta.Namespace][className] = make(map[string]APIMethod)
		}
		entry := APIMethod{
			Name:       meta.MethodName,
			StableKey:  key,
			Importance: string(meta.Importance),
			Deprecated: meta.HasTag("deprecated"),
		}
		if existing, ok := tree[meta.Namespace][className][meta.MethodName]; ok {
			deprecated := entry.Deprecated || existing.Deprecated
			if existing.StableKey <= key {
				entry = existing
			}
			entry.Deprecated = deprecated
		}
		tree[meta.Namespace][className][meta.MethodName] = entry
	}

	groups := make([]APIGroup, 0, len(tree))
	for ns, classes := range tree {
		group := APIGroup{Namespace: ns, Classes: make([]APIClass, 0, len(classes))}
		for name, byMethod := range classes {
			methods := make([]APIMethod, 0, len(byMethod))
			for _, m := range byMethod {
				methods = append(methods, m)
			}
			sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
			group.Classes = append(group.Classes, APIClass{Name: name, Methods: methods})
		}
		sort.Slice(group.Classes, func(i, j int) bool { return group.Classes[i].Name < group.Classes[j].Name })
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Namespace < groups[j].Namespace })
	return groups
}
