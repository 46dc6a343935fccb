package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`    _       _                 _                  `, "#34d399"},
	{`   / \   __| |_   _____ _ __ | |_ _   _ _ __ ___ `, "#2dd4bf"},
	{`  / _ \ / _' \ \ / / _ \ '_ \| __| | | | '__/ _ \`, "#22d3ee"},
	{` / ___ \ (_| |\ V /  __/ | | | |_| |_| | | |  __/`, "#38bdf8"},
	{`/_/   \_\__,_| \_/ \___|_| |_|\__|\__,_|_|  \___|`, "#60a5fa"},
}

// PrintBanner writes the title banner followed by the story title.
// Colors are dropped when w is not a color terminal.
func PrintBanner(w io.Writer, title string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	if title != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, out.String("  "+title).Bold())
	}
	fmt.Fprintln(w)
}
