package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchYAML       bool
	searchModalities []string
	searchTags       []string
	searchItems      []string
	searchAfter      string
	searchBefore     string
	searchMinSize    int64
	searchMaxSize    int64
	searchPreviews   bool
	searchRerank     bool
	searchModel      string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Long: `Runs a permission-aware search as the configured identity (or --as).

Depending on the search mode this combines full-text search, vector search
and LLM query expansion. Results from every path are fused with reciprocal
rank fusion and boosted by recency, popularity and tag overlap.`,
	Example: `  sercha-kb search "how do we rotate database credentials"
  sercha-kb search --modality document,issue --tag ops -n 5 deploy rollback
  sercha-kb search --previews --rerank --json "quarterly planning"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from settings)")
	f.BoolVar(&searchJSON, "json", false, "output results as JSON")
	f.BoolVar(&searchYAML, "yaml", false, "output results as YAML")
	f.StringSliceVarP(&searchModalities, "modality", "m", nil, "restrict to modalities (message, document, email, feed, issue, note, observation)")
	f.StringSliceVarP(&searchTags, "tag", "t", nil, "only items carrying any of these tags")
	f.StringSliceVar(&searchItems, "item", nil, "only these item ids")
	f.StringVar(&searchAfter, "after", "", "created on or after (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&searchBefore, "before", "", "created on or before (RFC 3339 or YYYY-MM-DD)")
	f.Int64Var(&searchMinSize, "min-size", 0, "minimum item size in bytes")
	f.Int64Var(&searchMaxSize, "max-size", 0, "maximum item size in bytes")
	f.BoolVarP(&searchPreviews, "previews", "p", false, "show a short preview of the best chunk")
	f.BoolVar(&searchRerank, "rerank", false, "reorder results with the configured LLM")
	f.StringVar(&searchModel, "model", "", "LLM model for query expansion")
	searchCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureRuntime(cmd); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	req, err := buildSearchRequest(strings.Join(args, " "))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	subject, err := currentSubject(ctx)
	if err != nil {
		return err
	}

	results, err := searchService.Search(ctx, subject, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	switch {
	case searchJSON:
		return outputSearchJSON(cmd, results)
	case searchYAML:
		return outputSearchYAML(cmd, results)
	default:
		renderResults(cmd.OutOrStdout(), paletteFor(cmd.OutOrStdout()), results)
		return nil
	}
}

func buildSearchRequest(query string) (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Query: query,
		Filters: domain.SearchFilters{
			Tags:    searchTags,
			ItemIDs: searchItems,
			MinSize: searchMinSize,
			MaxSize: searchMaxSize,
			Limit:   searchLimit,
		},
		Config: domain.SearchConfig{
			Previews:  searchPreviews,
			UseScores: searchRerank,
			Model:     searchModel,
		},
	}

	for _, m := range searchModalities {
		modality := domain.Modality(strings.ToLower(strings.TrimSpace(m)))
		if !modality.IsValid() {
			return req, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, m)
		}
		req.Modalities = append(req.Modalities, modality)
	}

	var err error
	if req.Filters.CreatedAfter, err = parseDate(searchAfter); err != nil {
		return req, err
	}
	if req.Filters.CreatedBefore, err = parseDate(searchBefore); err != nil {
		return req, err
	}
	if searchMaxSize > 0 && searchMinSize > searchMaxSize {
		return req, fmt.Errorf("%w: --min-size exceeds --max-size", domain.ErrInvalidInput)
	}
	return req, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates (midnight UTC).
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse date %q", domain.ErrInvalidInput, s)
	}
	return t, nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchYAML(cmd *cobra.Command, results []domain.SearchResult) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return enc.Close()
}
