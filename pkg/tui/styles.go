package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains the lipgloss styles used by the chat view.
type Styles struct {
	Title       lipgloss.Style
	Description lipgloss.Style
	User        lipgloss.Style
	Assistant   lipgloss.Style
	Question    lipgloss.Style
	Options     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Help        lipgloss.Style
}

// DefaultStyles returns the default colour scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1),
		Description: lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).MarginBottom(1),
		User:        lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Assistant:   lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		Question:    lipgloss.NewStyle().Bold(true),
		Options:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Italic(true),
		Warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).MarginTop(1),
	}
}
