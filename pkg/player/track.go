package player

import (
	"fmt"
	"strings"
)

// Track is one playable unit in a queue. A lazy track carries metadata only;
// its stream URL is resolved just before it plays. The queue entry that
// references a Track is its sole owner.
type Track struct {
	Title       string
	Uploader    string
	Duration    int // seconds
	Thumbnail   string
	WebpageURL  string
	StreamURL   string
	RequesterID string

	// Lazy marks a track whose stream URL has not been resolved yet.
	Lazy bool
}

// DurationString renders the track duration in compact d/h/m/s form.
func (t *Track) DurationString() string {
	return FormatDuration(t.Duration)
}

// FormatDuration renders seconds as a compact duration, dropping zero
// components: 3725 -> "1h 2m 5s", 45 -> "45s".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}
