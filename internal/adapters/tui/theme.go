package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	Header    lipgloss.Style
	Muted     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Thinking  lipgloss.Style
	Typing    lipgloss.Style
	Cursor    lipgloss.Style
	Input     lipgloss.Style
	Danger    lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#F5A9F2")
	secondary := lipgloss.Color("#7D7D7D")
	user := lipgloss.Color("#00FFFF")
	danger := lipgloss.Color("#FF0055")

	return theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		Muted: lipgloss.NewStyle().
			Foreground(secondary),
		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(user),
		Assistant: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Thinking: lipgloss.NewStyle().
			Italic(true).
			Foreground(secondary).
			PaddingLeft(2),
		Typing: lipgloss.NewStyle().
			Foreground(secondary).
			PaddingLeft(2),
		Cursor: lipgloss.NewStyle().
			Foreground(accent),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Danger: lipgloss.NewStyle().
			Foreground(danger),
	}
}
