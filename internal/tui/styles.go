package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E5E7EB"))

	focusedLabelStyle = labelStyle.
				Foreground(lipgloss.Color("#3B82F6"))

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 3).
			MarginTop(1)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("#1D4ED8")).
				Underline(true)

	disabledButtonStyle = buttonStyle.
				Foreground(lipgloss.Color("#E5E7EB")).
				Background(lipgloss.Color("#6B7280"))

	errorPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Foreground(lipgloss.Color("#EF4444")).
			Padding(0, 1).
			MarginTop(1)

	// No Width: the analysis must not be reflowed or truncated.
	resultPanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#10B981")).
				Padding(0, 1).
				MarginTop(1).
				TabWidth(lipgloss.NoTabConversion)

	resultTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)
