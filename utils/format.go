package utils

import (
	"fmt"
	"time"
)

// HumanBytes renders a byte count as a short human-readable size.
func HumanBytes(size int64) string {
	if size <= 0 {
		return "0B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(size)
	idx := 0
	for value >= 1024.0 && idx < len(units)-1 {
		value /= 1024.0
		idx++
	}
	return fmt.Sprintf("%.2f%s", value, units[idx])
}

// FormatDuration renders a duration in whole seconds, minutes or hours for
// user-facing summaries.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
