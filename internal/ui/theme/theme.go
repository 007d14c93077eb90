// Package theme holds the lipgloss styles used for CLI output.
package theme

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(Accent)
)

// Card frames a block such as a question or a lesson.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Border).
	Padding(0, 1)

// Rule returns a horizontal separator of the given width.
func Rule(width int) string {
	return lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", width))
}

// Pad right-pads s to width cells, measuring styled text correctly.
func Pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Row joins cells padded to the given widths with two spaces.
func Row(widths []int, cells ...string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if i < len(widths) && i < len(cells)-1 {
			c = Pad(c, widths[i])
		}
		parts[i] = c
	}
	return strings.Join(parts, "  ")
}

// Verdict renders a correct or incorrect marker.
func Verdict(correct bool) string {
	if correct {
		return Correct.Render("✓ correct")
	}
	return Incorrect.Render("✗ incorrect")
}
