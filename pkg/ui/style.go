package ui

import (
	"github.com/charmbracelet/lipgloss"
)

type Style struct {
	StatusBar      lipgloss.Style
	TreePane       lipgloss.Style
	TranscriptPane lipgloss.Style
	SelectedNode   lipgloss.Style
	PendingNode    lipgloss.Style
	CollapsedNode  lipgloss.Style
	Minimap        lipgloss.Style
	MinimapView    lipgloss.Style
}

func DefaultStyles() *Style {
	return &Style{
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#444444", Dark: "#CCCCCC"}).
			Padding(0, 1),
		TreePane: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		TranscriptPane: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		SelectedNode: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#B04070", Dark: "#DD7090"}),
		PendingNode: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999933", Dark: "#DDDD77"}),
		CollapsedNode: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#777777"}),
		Minimap: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#666666"}),
		MinimapView: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B04070", Dark: "#DD7090"}),
	}
}
