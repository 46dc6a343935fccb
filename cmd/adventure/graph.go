package main

import (
	"fmt"

	"github.com/PixelPioneer1807/adventure/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <story-id>",
	Short: "Export the story graph as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the story.
With --save-id, the nodes visited by that save and its current node are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saveID, _ := cmd.Flags().GetString("save-id")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		g, err := a.engine.Graphs().Graph(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if saveID != "" {
			store, err := a.store()
			if err != nil {
				return err
			}
			saved, err := store.Load(cmd.Context(), saveID)
			if err != nil {
				return fmt.Errorf("load save %q: %w", saveID, err)
			}
			if saved.StoryID != g.StoryID {
				return fmt.Errorf("save %q belongs to story %q", saveID, saved.StoryID)
			}
			overlay = graph.OverlayFromSave(saved)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("save-id", "", "Highlight the path of this save")
}
