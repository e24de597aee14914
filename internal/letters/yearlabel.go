package letters

import (
	"fmt"
	"strings"
	"time"
)

// DefaultYearLabel returns "<last year>-<this year, two digits>", e.g. 2023-24
// for any date in 2024.
func DefaultYearLabel(now time.Time) string {
	year := now.Year()
	return fmt.Sprintf("%d-%02d", year-1, year%100)
}

// ResolveYearLabel returns the trimmed operator value, or the default label
// when it is blank.
func ResolveYearLabel(value string, now time.Time) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return DefaultYearLabel(now)
}
