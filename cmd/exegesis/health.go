package main

import "github.com/spf13/cobra"

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Build the index and report corpus and backend status as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return writeJSON(cmd.OutOrStdout(), a.pipeline.Health(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
