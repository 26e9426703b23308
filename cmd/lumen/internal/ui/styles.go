package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/lumen/cmd/lumen/internal/build"
)

// Style definitions
var (
	// Colors
	primaryColor   = lipgloss.Color("#f59e0b") // Lumen amber
	secondaryColor = lipgloss.Color("#64748b") // Gray
	successColor   = lipgloss.Color("#10b981") // Green
	errorColor     = lipgloss.Color("#ef4444") // Red
	mutedColor     = lipgloss.Color("#94a3b8") // Muted gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	caretStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// RenderError formats a compilation error for the terminal. Diagnostics with
// a known position include the offending line and a caret under the column.
func RenderError(err error) string {
	var d *build.Diagnostic
	if !errors.As(err, &d) {
		return errorStyle.Render("✗ ") + err.Error()
	}

	var b strings.Builder
	line, col, ok := d.Position()
	if ok {
		fmt.Fprintf(&b, "%s%s\n", errorStyle.Render("✗ "), errorStyle.Render(fmt.Sprintf("%s:%d:%d", d.Path, line, col)))
	} else {
		fmt.Fprintf(&b, "%s%s\n", errorStyle.Render("✗ "), errorStyle.Render(d.Path))
	}
	fmt.Fprintf(&b, "  %v\n", d.Err)

	excerpt, ok := d.Excerpt()
	if !ok {
		return b.String()
	}
	num := strconv.Itoa(line)
	gutter := strings.Repeat(" ", len(num))
	fmt.Fprintf(&b, "  %s %s %s\n", mutedStyle.Render(num), mutedStyle.Render("│"), excerpt)
	fmt.Fprintf(&b, "  %s %s %s%s\n", gutter, mutedStyle.Render("│"), caretPadding(excerpt, col), caretStyle.Render("^"))
	return b.String()
}

// caretPadding blanks the text before the 1-based column col, keeping tabs
// so the caret lines up with the excerpt
func caretPadding(line string, col int) string {
	var b strings.Builder
	n := 0
	for _, r := range line {
		if n >= col-1 {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
		n++
	}
	return b.String()
}

// RenderSuccess formats a one-line success message
func RenderSuccess(msg string) string {
	return successStyle.Render("✓ ") + msg
}
