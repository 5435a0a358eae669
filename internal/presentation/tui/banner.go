// Package tui holds the terminal presentation of the chat command.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Teal to blue, one shade per row.
	lines := []struct{ text, color string }{
		{"   ___                _                 ", "#2dd4bf"},
		{"  / __|___ _ _  __ __(_)___ _ _ __ _ ___ ", "#22d3ee"},
		{" | (__/ _ \\ ' \\/ _/ -_) / -_) '_/ _` / -_)", "#38bdf8"},
		{"  \\___\\___/_||_\\__\\___|_\\___|_| \\__, \\___|", "#60a5fa"},
		{"                                |___/     ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  hospital support assistant "+version).Faint())
	fmt.Fprintln(w)
}
