// Package style provides terminal styling for wg command output.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Color palette.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#59c2ff"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#7fd962"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#ffb454"}
	colorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f07178"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#626a73"}
)

// Styles shared by commands.
var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Foreground(colorDim)
	Header  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	Success = lipgloss.NewStyle().Foreground(colorSuccess)
	Warning = lipgloss.NewStyle().Foreground(colorWarning)
	Error   = lipgloss.NewStyle().Foreground(colorError)
	Hash    = lipgloss.NewStyle().Foreground(colorPrimary)
)

var titleCaser = cases.Title(language.English)

// TitleCase renders an identifier-ish word for display.
func TitleCase(s string) string {
	return titleCaser.String(s)
}

// StatusStyle picks a style for a task status string.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return Success
	case "failed", "abandoned":
		return Error
	case "in_progress", "pending_review":
		return Warning
	default:
		return Dim
	}
}

// Width returns the terminal width, defaulting to 80 when stdout is not a
// terminal.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// Truncate shortens a string to fit a width, appending an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
