package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PixelPioneer1807/adventure/internal/presentation/tui"
	"github.com/PixelPioneer1807/adventure/pkg/runner"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [story-id]",
	Short: "Play a story in the terminal",
	Long: `Starts a story at its root, or resumes a save with --save-id.
Type the number of an option to choose it, or :help for commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saveID, _ := cmd.Flags().GetString("save-id")
		noAutoSave, _ := cmd.Flags().GetBool("no-autosave")
		if saveID == "" && len(args) == 0 {
			return errors.New("a story id or --save-id is required")
		}

		var extra []session.Option
		if noAutoSave {
			extra = append(extra, session.WithAutoSave(false))
		}
		a, err := newApp(cmd, extra...)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.close(ctx)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var sess *session.Session
		if saveID != "" {
			sess, err = a.engine.Resume(ctx, saveID)
		} else {
			sess, err = a.engine.Play(ctx, args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		opts := []runner.Option{
			runner.WithIO(cmd.InOrStdin(), out),
			runner.WithStore(a.engine.Store()),
			runner.WithLogger(a.logger),
		}
		if tui.IsTerminal(out) {
			title := sess.Graph().Title
			if title == "" {
				title = sess.StoryID()
			}
			tui.PrintBanner(out, title)
			opts = append(opts, runner.WithRenderer(tui.NewRenderer(tui.Width(out, 80))))
		}

		err = runner.NewRunner(opts...).Run(ctx, sess)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("save-id", "", "Resume from this save instead of starting over")
	playCmd.Flags().Bool("no-autosave", false, "Disable the periodic auto-save")
}
