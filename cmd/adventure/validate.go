package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <story-id>",
	Short: "Check a story graph for consistency",
	Long: `Walks the story from its root and reports dangling options, ending flags
that contradict the options, and unreachable nodes (as warnings).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		report, err := a.engine.Validate(cmd.Context(), args[0])
		out := cmd.OutOrStdout()
		if report != nil {
			for _, id := range report.Unreachable {
				fmt.Fprintf(out, "warning: node %q is unreachable from the root\n", id)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Story %q is valid (%d reachable nodes).\n", args[0], len(report.Reachable))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
