package memory

import (
	"fmt"
	"time"
)

// RecencyLabel renders the age of a memory as coarse human-friendly
// text. Buckets use floor division, so 47 hours is "1 day ago".
func RecencyLabel(createdAt, now time.Time) string {
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}

	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age/time.Minute), "minute")
	case age < 24*time.Hour:
		return plural(int(age/time.Hour), "hour")
	default:
		return plural(int(age/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
