package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/PixelPioneer1807/adventure/internal/logging"
	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/navigator"
	"github.com/PixelPioneer1807/adventure/pkg/ports"
	"github.com/PixelPioneer1807/adventure/pkg/session"
	"github.com/muesli/termenv"
)

// Runner drives a session from a line-oriented terminal.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer

	// Store backs :saves. If nil, the command reports that no store is configured.
	Store ports.SaveStore

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// NewRunner creates a new Runner with default Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run renders the session and executes player commands until :quit, EOF or
// ctx is done. The session must already be started or loaded.
// Failed commands are reported and the loop continues.
func (r *Runner) Run(ctx context.Context, sess *session.Session) error {
	h := NewTextHandler(r.Input, r.Output)
	h.Renderer = r.Renderer
	styles := termenv.NewOutput(r.Output)

	r.render(h, styles, sess)

	for {
		line, err := h.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.Println()
				return nil
			}
			return err
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			h.SystemOutput(err.Error())
			continue
		}

		quit, rerender, err := r.execute(ctx, h, sess, cmd)
		if err != nil {
			r.Logger.Debug("command failed", "session_id", sess.ID(), "err", err)
			h.SystemOutput("Error: " + err.Error())
			continue
		}
		if quit {
			return nil
		}
		if rerender {
			r.render(h, styles, sess)
		}
	}
}

func (r *Runner) execute(ctx context.Context, h *TextHandler, sess *session.Session, cmd Command) (quit, rerender bool, err error) {
	switch cmd.Kind {
	case CmdChoose:
		opts, err := navigator.Options(sess.Graph(), sess.View().CurrentNodeID)
		if err != nil {
			return false, false, err
		}
		if cmd.Option > len(opts) {
			return false, false, fmt.Errorf("no option %d", cmd.Option)
		}
		choice := opts[cmd.Option-1]
		if _, err := sess.Choose(ctx, choice.TargetNodeID, choice.Text); err != nil {
			return false, false, err
		}
		return false, true, nil

	case CmdSave:
		name, err := SanitizeLabel(cmd.Arg)
		if err != nil {
			return false, false, err
		}
		saved, err := sess.SaveNow(ctx, name, false)
		if err != nil {
			return false, false, err
		}
		h.SystemOutput(fmt.Sprintf("Saved %q as %s", saved.SaveName, saved.ID))
		return false, false, nil

	case CmdSaves:
		return false, false, r.listSaves(ctx, h, sess.StoryID())

	case CmdLoad:
		saved, err := sess.LoadSave(ctx, cmd.Arg)
		if err != nil {
			return false, false, err
		}
		h.SystemOutput(fmt.Sprintf("Loaded %q", saved.SaveName))
		return false, true, nil

	case CmdRestart:
		if err := sess.Restart(ctx); err != nil {
			return false, false, err
		}
		return false, true, nil

	case CmdAutoSave:
		sess.SetAutoSaveEnabled(cmd.On)
		state := "off"
		if cmd.On {
			state = "on"
		}
		h.SystemOutput("Auto-save " + state)
		return false, false, nil

	case CmdTime:
		h.SystemOutput(fmt.Sprintf("Played %d minutes", sess.ElapsedMinutes()))
		return false, false, nil

	case CmdHelp:
		h.Println(helpText)
		return false, false, nil

	case CmdQuit:
		return true, false, nil
	}
	return false, false, fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
}

func (r *Runner) render(h *TextHandler, styles *termenv.Output, sess *session.Session) {
	view := sess.View()
	if view.Node == nil {
		h.SystemOutput("Session has not started")
		return
	}

	h.Println()
	h.Content(view.Node.Content)
	h.Println()

	if view.Status == domain.StatusEnding {
		if view.Node.IsWinningEnding {
			h.Println(styles.String("THE END - You won!").Foreground(styles.Color("#22c55e")).Bold())
		} else {
			h.Println(styles.String("THE END").Foreground(styles.Color("#f43f5e")).Bold())
		}
		h.SystemOutput("Type :restart to play again, :load <id> to load a save or :quit to leave")
		return
	}

	for i, opt := range view.Node.Options {
		h.Printf("  %d) %s\n", i+1, opt.Text)
	}
}

func (r *Runner) listSaves(ctx context.Context, h *TextHandler, storyID string) error {
	if r.Store == nil {
		return session.ErrNoSaveStore
	}
	saves, err := r.Store.List(ctx, storyID)
	if err != nil {
		return &domain.PersistenceError{Op: "list", Err: err}
	}
	if len(saves) == 0 {
		h.SystemOutput("No saves yet")
		return nil
	}

	tw := tabwriter.NewWriter(h.Writer, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNODE\tMINUTES\tUPDATED")
	for _, s := range saves {
		name := s.SaveName
		if s.IsAutoSave {
			name += " (auto)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, name, s.CurrentNodeID, s.PlayTimeMinutes, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
