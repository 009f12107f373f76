package ui

import (
	"fmt"
	"time"
)

// FormatTimeAgo returns a compact age string like "2m ago", or "-" when
// the time is unset.
func FormatTimeAgo(then time.Time, now time.Time) string {
	if then.IsZero() || now.Before(then) {
		return "-"
	}
	return FormatDurationShort(now.Sub(then)) + " ago"
}

// FormatDurationShort formats a duration using short units (s/m/h/d).
func FormatDurationShort(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	duration = duration.Truncate(time.Second)
	seconds := int64(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd", days)
}

// FormatOptionalTime renders a nullable timestamp as an age, or "-".
func FormatOptionalTime(then *time.Time, now time.Time) string {
	if then == nil {
		return "-"
	}
	return FormatTimeAgo(*then, now)
}

// FormatOptionalID renders a nullable id, or "-".
func FormatOptionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
