package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Night-sky palette
	primaryColor   = lipgloss.Color("#7AA2F7") // nebula blue
	secondaryColor = lipgloss.Color("#9ECE6A") // green
	accentColor    = lipgloss.Color("#BB9AF7") // violet
	warningColor   = lipgloss.Color("#E0AF68") // amber
	errorColor     = lipgloss.Color("#F7768E") // red
	mutedColor     = lipgloss.Color("#565F89")
	textColor      = lipgloss.Color("#C0CAF5")
	dimTextColor   = lipgloss.Color("#9AA5CE")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor).
			MarginTop(1).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	sessionStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	targetNameStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	pathStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2).
			MarginTop(1)

	highlightBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 2).
				MarginTop(1)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Width(16)

	statValueStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	confirmPromptStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true).
				MarginTop(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginTop(1)

	iconTelescope = "🔭"
	iconSession   = "✦"
	iconExists    = "●"
	iconWarning   = "⚠"
	iconSuccess   = "✓"
	iconError     = "✗"
	iconArrow     = "→"
	iconFolder    = "📁"
)
