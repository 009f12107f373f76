package ui

import "github.com/charmbracelet/lipgloss"

var (
	createdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	fixedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// StyleStatus colors a task status for table output.
func StyleStatus(status string) string {
	switch status {
	case "created":
		return createdStyle.Render(status)
	case "fixed", "already_fixed", "false_positive":
		return fixedStyle.Render(status)
	case "skipped", "too_hard":
		return pendingStyle.Render(status)
	case "deleted":
		return mutedStyle.Render(status)
	default:
		return status
	}
}

// StyleReviewStatus colors a review status for table output.
func StyleReviewStatus(status string) string {
	switch status {
	case "requested", "disputed":
		return pendingStyle.Render(status)
	case "approved", "assisted":
		return fixedStyle.Render(status)
	case "rejected":
		return rejectedStyle.Render(status)
	case "unnecessary":
		return mutedStyle.Render(status)
	default:
		return status
	}
}
