package core

import (
	"strconv"
	"strings"
	"time"
)

// MonthRange is a half-open [Start, End) interval covering one calendar
// month in the reference location.
type MonthRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range. The start instant is
// included, the end instant is not.
func (r MonthRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParseMonthFilter interprets a month query value. Supported forms are a
// bare month number ("10", implicitly the current year) and "YYYY-MM".
// An empty or malformed value yields no filter rather than an error; a
// mistyped month silently returns the unfiltered result set, which matches
// the historical behavior callers depend on.
func ParseMonthFilter(value string, now time.Time) (MonthRange, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return MonthRange{}, false
	}

	yearStr := strconv.Itoa(now.Year())
	monthStr := value
	if strings.Contains(value, "-") {
		parts := strings.SplitN(value, "-", 2)
		yearStr, monthStr = parts[0], parts[1]
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return MonthRange{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return MonthRange{}, false
	}

	// time.Date normalizes out-of-range months, so "13" rolls into January
	// of the following year instead of failing.
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	return MonthRange{Start: start, End: start.AddDate(0, 1, 0)}, true
}
