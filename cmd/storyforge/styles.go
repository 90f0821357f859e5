package main

import "github.com/charmbracelet/lipgloss"

// Terminal styles for command output.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2196F3"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC107"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808890"))

	artifactStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1)
)
