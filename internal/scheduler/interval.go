package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// ParseInterval parses "15m", "1h", "4h", "1d" into a duration.
// Returns (0, false) on invalid input.
func ParseInterval(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, false
	}
	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(strings.TrimSpace(interval[:len(interval)-1]))
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}
