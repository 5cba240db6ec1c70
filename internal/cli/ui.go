package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/StockAnalyzer/internal/form"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	busyStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

// DisplayBusy shows that a request is on its way.
func DisplayBusy(w io.Writer, stock string) {
	fmt.Fprintln(w, busyStyle.Render(fmt.Sprintf("%s (%s)", form.BusyLabel, stock)))
}

// DisplayAnalysis prints the title and then the analysis exactly as the
// service returned it.
func DisplayAnalysis(w io.Writer, text string) {
	fmt.Fprintln(w, titleStyle.Render(form.ResultTitle))
	fmt.Fprintln(w, text)
}

// DisplayError shows an error message
func DisplayError(w io.Writer, message string) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+message))
}

// DisplayInfo shows an info message
func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render(message))
}

// DisplaySuccess shows a success message
func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render(message))
}
