package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var graphTopK int

var graphCmd = &cobra.Command{
	Use:   "graph [query]",
	Short: "Print the verse, concept and commentary neighborhood of a query as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.pipeline.Search(ctx, strings.Join(args, " "), graphTopK)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), a.pipeline.Subgraph(results))
	},
}

func init() {
	graphCmd.Flags().IntVarP(&graphTopK, "top-k", "k", 5, "Number of results to expand")
	rootCmd.AddCommand(graphCmd)
}
