package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-flowboard/components/dashboard"
)

const (
	colorAccent lipgloss.Color = "6"
	colorMuted  lipgloss.Color = "8"
	colorBorder lipgloss.Color = "4"
)

// renderCards lays metric cards out side by side, each width cells wide.
func renderCards(title string, cards []dashboard.MetricCard, width int) string {
	if width < 8 {
		width = 8
	}
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width)
	label := lipgloss.NewStyle().Foreground(colorMuted)
	value := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	unit := lipgloss.NewStyle().Foreground(colorMuted)

	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		body := label.Render(c.Label) + "\n" + value.Render(c.Value)
		if c.Unit != "" {
			body += " " + unit.Render(c.Unit)
		}
		rendered = append(rendered, card.Render(body))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if title == "" {
		return row
	}
	heading := lipgloss.NewStyle().Bold(true).Render(title)
	return strings.Join([]string{heading, row}, "\n")
}

func lastRefreshCard(at time.Time) dashboard.MetricCard {
	value := "never"
	if !at.IsZero() {
		value = at.Format("15:04:05")
	}
	return dashboard.MetricCard{Key: dashboard.MetricLastRefresh, Label: "Last Refresh", Value: value}
}
