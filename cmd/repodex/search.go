package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mfreed/repodex/internal/config"
	"github.com/mfreed/repodex/internal/search"
)

var (
	searchPage        int
	searchPublicOnly  bool
	searchPrivateOnly bool
	searchKeywordOnly bool
	searchSortBy      string
	searchDesc        bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the repository catalog",
	Long: `Search combines substring keyword matching with semantic similarity
over the embedded records. Without a query it lists the catalog. With
--keyword-only, or when no embedding provider is configured, only the
keyword signal is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		return runSearch(cmd.Context(), cfg, query)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "result page to show")
	searchCmd.Flags().BoolVar(&searchPublicOnly, "public", false, "show only public repositories")
	searchCmd.Flags().BoolVar(&searchPrivateOnly, "private", false, "show only private repositories")
	searchCmd.Flags().BoolVar(&searchKeywordOnly, "keyword-only", false, "skip the semantic signal")
	searchCmd.Flags().StringVar(&searchSortBy, "sort", "name", "sort column when no query ranking applies (name, created, visibility)")
	searchCmd.Flags().BoolVar(&searchDesc, "desc", false, "sort descending")
	rootCmd.AddCommand(searchCmd)
}

func sortColumn(name string) (search.SortColumn, error) {
	switch name {
	case "name":
		return search.SortByName, nil
	case "created":
		return search.SortByCreated, nil
	case "visibility":
		return search.SortByVisibility, nil
	default:
		return 0, fmt.Errorf("unknown sort column %q", name)
	}
}

func runSearch(ctx context.Context, cfg *config.Config, query string) error {
	column, err := sortColumn(searchSortBy)
	if err != nil {
		return err
	}

	store, index, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer index.Close()

	repos, err := store.All(ctx)
	if err != nil {
		return err
	}

	eng := search.NewEngine(cfg.Search.PageSize, cfg.Search.Threshold)
	eng.SetRepositories(repos)
	eng.SetVisibility(!searchPrivateOnly, !searchPublicOnly)
	eng.SetSort(column, !searchDesc)
	eng.SetFilter(query)

	if query != "" && !searchKeywordOnly && cfg.Embedding.APIKey != "" {
		if err := applySemanticScores(ctx, cfg, eng, index, query); err != nil {
			// Keyword results still work without the semantic signal.
			slog.Warn("semantic search unavailable", "error", err)
		}
	}

	eng.SetPage(searchPage - 1)
	printResults(eng, query)
	return nil
}

func applySemanticScores(ctx context.Context, cfg *config.Config, eng *search.Engine, index search.ScoreSource, query string) error {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return err
	}
	scores, err := index.Scores(ctx, vec)
	if err != nil {
		return err
	}
	eng.SetSemanticScores(query, scores)
	return nil
}

func printResults(eng *search.Engine, query string) {
	page := eng.Page()
	if len(page) == 0 {
		fmt.Println("No repositories found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tVISIBILITY\tSCORE\tDESCRIPTION")
	for _, rec := range page {
		visibility := "public"
		if rec.Private {
			visibility = "private"
		}
		score := "-"
		if query != "" {
			if s := eng.Score(rec); s > 0 {
				score = fmt.Sprintf("%.2f", s)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.FullName, rec.Source, visibility, score, truncate(rec.Description, 60))
	}
	w.Flush()

	fmt.Printf("Page %d of %d (%d repositories)\n",
		eng.CurrentPage()+1, eng.PageCount(), len(eng.Results()))
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
