package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"exegesis/internal/domain"
)

var (
	askTopK int
	askPool int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Search, then synthesize a grounded answer from the commentaries",
	Long: `ask ranks verses for the question and sends a bounded set of commentary excerpts
to the reasoning service. Citations outside the offered excerpts are dropped. Without an
API key the answer is always INSUFFICIENT_GROUNDED_EVIDENCE.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 5, "Number of results")
	askCmd.Flags().IntVar(&askPool, "pool", 1, "Number of top results whose commentaries ground the answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	var answer domain.Answer
	if askPool > 1 {
		answer, err = a.pipeline.AskPooled(ctx, query, askTopK, askPool)
	} else {
		answer, err = a.pipeline.Ask(ctx, query, askTopK)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		return writeJSON(out, struct {
			Query     string                 `json:"query"`
			Results   []resultView           `json:"results"`
			Excerpts  []string               `json:"selected_excerpt_ids"`
			Synthesis domain.SynthesisResult `json:"synthesis"`
		}{
			Query:     answer.Query,
			Results:   toResultViews(answer.Results),
			Excerpts:  excerptIDs(answer.Excerpts),
			Synthesis: answer.Synthesis,
		})
	}
	printResults(out, answer.Results)
	fmt.Fprintln(out)
	printSynthesis(out, answer.Synthesis)
	return nil
}

func printSynthesis(w io.Writer, s domain.SynthesisResult) {
	fmt.Fprintf(w, "Synthesis (%s)\n", s.Source)
	fmt.Fprintf(w, "  summary:    %s\n", s.Summary)
	fmt.Fprintf(w, "  direction:  %s\n", s.Direction)
	fmt.Fprintf(w, "  confidence: %.2f\n", s.Confidence)
	if len(s.CitedExcerptIDs) > 0 {
		fmt.Fprintf(w, "  cited:      %s\n", strings.Join(s.CitedExcerptIDs, ", "))
		fmt.Fprintf(w, "  schools:    %s\n", strings.Join(s.CitedSchools, ", "))
	}
	fmt.Fprintf(w, "  note:       %s\n", s.Note)
}

func excerptIDs(excerpts []domain.Excerpt) []string {
	ids := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		ids = append(ids, e.ID)
	}
	return ids
}
