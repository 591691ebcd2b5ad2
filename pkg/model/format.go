package model

import (
	"fmt"
	"time"
)

// FormatBytes renders a byte count in the nearest binary unit.
func FormatBytes(n int64) string {
	if n < 0 {
		return "unknown"
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders a duration as DD:HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	days := secs / 86400
	secs -= days * 86400
	hours := secs / 3600
	secs -= hours * 3600
	mins := secs / 60
	secs -= mins * 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", days, hours, mins, secs)
}
