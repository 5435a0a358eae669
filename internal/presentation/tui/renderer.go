package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a markdown renderer for assistant replies. Output that
// is not a terminal gets the text back unchanged.
func NewRenderer(out *os.File) func(string) (string, error) {
	if !IsTerminal(out) {
		return plain
	}

	width := 100
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detects light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plain
	}

	return func(markdown string) (string, error) {
		s, err := r.Render(markdown)
		if err != nil {
			return markdown, err
		}
		return strings.TrimRight(s, "\n"), nil
	}
}

func plain(s string) (string, error) { return s, nil }

// NewStyle returns the style used for confirmation prompts and system notes.
func NewStyle(out *os.File) func(string) string {
	if !IsTerminal(out) {
		return func(s string) string { return s }
	}
	p := termenv.NewOutput(out).ColorProfile()
	return func(s string) string {
		return termenv.String(s).Foreground(p.Color("#fbbf24")).Bold().String()
	}
}
