package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// ParseTimeframe accepts M<n>, H<n>, D<n>, W1 or a Go duration ("90m").
func ParseTimeframe(s string) (time.Duration, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty timeframe")
	}

	unit := map[byte]time.Duration{'M': time.Minute, 'H': time.Hour, 'D': Day, 'W': Week}
	if u, ok := unit[s[0]]; ok {
		if n, err := strconv.Atoi(s[1:]); err == nil {
			if n <= 0 {
				return 0, fmt.Errorf("invalid timeframe %q", s)
			}
			return time.Duration(n) * u, nil
		}
	}

	d, err := time.ParseDuration(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("unsupported timeframe %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", s)
	}
	return d, nil
}

// FormatTimeframe is the inverse of ParseTimeframe for whole minutes,
// hours, days and weeks.
func FormatTimeframe(d time.Duration) (string, error) {
	switch {
	case d <= 0:
		return "", fmt.Errorf("invalid timeframe %s", d)
	case d == Week:
		return "W1", nil
	case d%Day == 0:
		return fmt.Sprintf("D%d", d/Day), nil
	case d%time.Hour == 0:
		return fmt.Sprintf("H%d", d/time.Hour), nil
	case d%time.Minute == 0:
		return fmt.Sprintf("M%d", d/time.Minute), nil
	}
	return "", fmt.Errorf("cannot map timeframe %s", d)
}
