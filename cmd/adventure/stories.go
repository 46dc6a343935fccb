package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Inspect the configured story source",
}

var storiesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		graphs := a.engine.Graphs()
		ids, err := graphs.Stories(cmd.Context())
		if err != nil {
			return fmt.Errorf("list stories: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stories found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tNODES")
		for _, id := range ids {
			g, err := graphs.Graph(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(tw, "%s\t(error: %v)\t-\n", id, err)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", id, g.Title, len(g.Nodes))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(storiesCmd)
	storiesCmd.AddCommand(storiesLsCmd)
}
