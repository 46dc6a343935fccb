/*
Package runner implements the terminal play loop for a session.

It renders the current node, numbers its options and reads player commands:
an option number, or one of :save, :saves, :load, :restart, :autosave, :time,
:help and :quit. Input is sanitized before it reaches the session.

# Usage

	r := runner.NewRunner(
		runner.WithRenderer(tui.NewRenderer()),
		runner.WithStore(store),
	)

	if err := r.Run(ctx, sess); err != nil {
		log.Fatal(err)
	}
*/
package runner
