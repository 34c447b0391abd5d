package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/pagepilot/pkg/session"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("62")).
				Bold(true).
				Underline(true)

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Width(14)

	summaryValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// renderSummary formats the end-of-run report.
func renderSummary(hostName string, stats session.Stats, uptime time.Duration) string {
	rows := [][2]string{
		{"host", hostName},
		{"uptime", uptime.Round(time.Second).String()},
		{"open tabs", fmt.Sprintf("%d", stats.Count)},
		{"interactions", fmt.Sprintf("%d", stats.TotalInteractions)},
	}
	if stats.OldestStart != nil {
		rows = append(rows, [2]string{"oldest tab", stats.OldestStart.Local().Format("15:04:05")})
	}

	var b strings.Builder
	b.WriteString(summaryTitleStyle.Render("pagepilot session"))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(summaryLabelStyle.Render(row[0]))
		b.WriteString(summaryValueStyle.Render(row[1]))
	}
	return summaryBoxStyle.Render(b.String())
}
