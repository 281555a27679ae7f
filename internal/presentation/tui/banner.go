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
	{" ____  _                     _ _   _     ", "#fbbf24"},
	{"|  _ \\(_)_ __  ___ _ __ ___ (_) |_| |__  ", "#f59e0b"},
	{"| |_) | | '_ \\/ __| '_ ` _ \\| | __| '_ \\ ", "#f97316"},
	{"|  __/| | | | \\__ \\ | | | | | | |_| | | |", "#ea580c"},
	{"|_|   |_|_| |_|___/_| |_| |_|_|\\__|_| |_|", "#dc2626"},
}

// PrintBanner writes the pinsmith ASCII banner to w.
// Colors degrade to the terminal's profile, and to plain text when w is not a TTY.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
