package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage saved games",
	Long:  `List, inspect and remove the saves held by the configured save store.`,
}

var savesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saves, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID, _ := cmd.Flags().GetString("story")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		store, err := a.store()
		if err != nil {
			return err
		}

		saves, err := store.List(cmd.Context(), storyID)
		if err != nil {
			return fmt.Errorf("list saves: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(saves) == 0 {
			fmt.Fprintln(out, "No saves found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTORY\tNAME\tNODE\tAUTO\tUPDATED")
		for _, s := range saves {
			auto := ""
			if s.IsAutoSave {
				auto = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.StoryID, s.SaveName, s.CurrentNodeID, auto, s.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var savesInspectCmd = &cobra.Command{
	Use:   "inspect <save-id>",
	Short: "Print a save as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		store, err := a.store()
		if err != nil {
			return err
		}

		saved, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load save %q: %w", args[0], err)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(saved, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var savesRmCmd = &cobra.Command{
	Use:   "rm <save-id>...",
	Short: "Remove one or more saves",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		store, err := a.store()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, saveID := range args {
			if err := store.Delete(cmd.Context(), saveID); err != nil {
				fmt.Fprintf(out, "Error removing '%s': %v\n", saveID, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "Removed save '%s'\n", saveID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d saves not removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(savesCmd)
	savesCmd.AddCommand(savesLsCmd)
	savesCmd.AddCommand(savesInspectCmd)
	savesCmd.AddCommand(savesRmCmd)

	savesLsCmd.Flags().String("story", "", "Only list saves of this story")
}
