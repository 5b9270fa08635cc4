package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/sdkdocs-mcp/internal/parser"
)

// LoadDirectory walks root and loads every indexable document: .json
// API specifications and .md narrative docs. Hidden directories are
// skipped. Document IDs are root-relative slash paths so they stay
// stable across platforms and working directories.
func LoadDirectory(root string) ([]parser.SourceDocument, error) {
	var docs []parser.SourceDocument

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IndexableFile(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, parser.SourceDocument{
			ID:      filepath.ToSlash(rel),
			Path:    path,
			Format:  parser.DetectFormat(path),
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover documents: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// IndexableFile reports whether the path is a document format the
// pipeline understands.
func IndexableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".md", ".markdown":
		return true
	default:
		return false
	}
}
