package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/sdkdocs-mcp/internal/indexer"
	"github.com/dshills/sdkdocs-mcp/internal/searcher"
)

var (
	searchLimit      int
	searchJSON       bool
	searchNamespace  string
	searchType       string
	searchImportance string
	searchLexical    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed SDK documentation",
	Long: `Performs hybrid search over the indexed documentation.
Combines lexical (BM25) and semantic (vector) scores into one ranking.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchNamespace, "namespace", "", "restrict to one namespace")
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict to one content type (method, class, type, example)")
	searchCmd.Flags().StringVar(&searchImportance, "importance", "", "restrict to one importance level")
	searchCmd.Flags().BoolVar(&searchLexical, "lexical", false, "skip the semantic path and rank by lexical score only")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := openPipeline(ctx, indexer.Config{}, !searchLexical)
	if err != nil {
		return err
	}
	defer p.close()

	if err := p.searcher.Reindex(ctx); err != nil {
		return fmt.Errorf("load search index: %w", err)
	}

	resp, err := p.searcher.Search(ctx, searcher.Request{
		Query:    args[0],
		Limit:    searchLimit,
		Semantic: !searchLexical,
		Filters: searcher.Filters{
			Namespace:  searchNamespace,
			Type:       searchType,
			Importance: searchImportance,
		},
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *searcher.Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *searcher.Response) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d result(s) in %s\n\n", resp.TotalResults, resp.Duration.Round(time.Millisecond))
	for i := range resp.Results {
		res := &resp.Results[i]
		meta := res.Chunk.Metadata
		cmd.Printf("  [%d] %s (%.2f)\n", res.Rank, res.Chunk.StableKey(), res.FusedScore)
		cmd.Printf("      %s | %s importance | lexical %.2f, semantic %.2f\n",
			meta.Type, meta.Importance, res.LexicalScore, res.SemanticScore)
		if line := snippet(res.Chunk.Content, 96); line != "" {
			cmd.Printf("      %s\n", line)
		}
		cmd.Println()
	}
	return nil
}

// snippet returns the first non-empty, non-heading line of content,
// truncated to max runes.
func snippet(content string, max int) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		runes := []rune(line)
		if len(runes) > max {
			return string(runes[:max]) + "..."
		}
		return line
	}
	return ""
}
