package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"exegesis/internal/domain"
)

var (
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Rank verses for a query and show how each was reached",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "Number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	results, err := a.pipeline.Search(ctx, query, searchTopK)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, toResultViews(results))
	}
	printResults(out, results)
	return nil
}

type resultView struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"`
	Text         string            `json:"text"`
	Translations map[string]string `json:"translations,omitempty"`
	Provenance   []string          `json:"provenance"`
	Concepts     []string          `json:"concepts"`
	Schools      []string          `json:"schools"`
	SupportCount int               `json:"support_count"`
}

func toResultViews(results []domain.SearchResult) []resultView {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		schools := make([]string, 0, len(r.Evidence))
		for _, e := range r.Evidence {
			schools = append(schools, e.School)
		}
		views = append(views, resultView{
			ID:           r.Target.ID,
			Score:        r.Score,
			Text:         r.Target.Text,
			Translations: r.Target.Translations,
			Provenance:   r.Provenance,
			Concepts:     r.Concepts,
			Schools:      schools,
			SupportCount: r.SupportCount,
		})
	}
	return views
}

func printResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. Verse %s  score=%.3f  support=%d\n", i+1, r.Target.ID, r.Score, r.SupportCount)
		if t, ok := r.Target.Translations["english"]; ok && t != "" {
			fmt.Fprintf(w, "   %s\n", t)
		}
		for _, p := range r.Provenance {
			fmt.Fprintf(w, "   via %s\n", p)
		}
		if len(r.Concepts) > 0 {
			fmt.Fprintf(w, "   concepts: %s\n", strings.Join(r.Concepts, ", "))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
