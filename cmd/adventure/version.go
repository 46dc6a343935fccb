package main

import (
	"fmt"
	"strings"

	"github.com/PixelPioneer1807/adventure"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of adventure",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adventure version %s\n", strings.TrimSpace(adventure.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
