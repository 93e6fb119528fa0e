package console

import (
	"github.com/charmbracelet/lipgloss"
)

// Autumn palette
var (
	colorBase03 = lipgloss.Color("#5c5044") // Comments, invisibles
	colorBase06 = lipgloss.Color("#d3b597") // Light foreground
	colorRed    = lipgloss.Color("#d95f5f")
	colorOrange = lipgloss.Color("#eb8755")
	colorYellow = lipgloss.Color("#f5b761")
	colorGreen  = lipgloss.Color("#93b56b")
	colorCyan   = lipgloss.Color("#61afaf")
	colorPurple = lipgloss.Color("#976bb5")
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	avatarStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorBase06)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorBase03)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	fenceStyle = lipgloss.NewStyle().
			Foreground(colorBase03)
)
