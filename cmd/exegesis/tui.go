package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"exegesis/internal/tui"
)

var tuiTopK int

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search with on-demand synthesis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = tea.NewProgram(tui.New(ctx, a.pipeline, tuiTopK)).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", 5, "Number of results")
	rootCmd.AddCommand(tuiCmd)
}
