package core

import (
	"testing"
	"time"
)

func TestParseMonthFilter(t *testing.T) {
	now := time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value string
		ok    bool
		start time.Time
		end   time.Time
	}{
		{"empty", "", false, time.Time{}, time.Time{}},
		{"blank", "   ", false, time.Time{}, time.Time{}},
		{"bare month uses current year", "03",
			true,
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"year and month", "2024-12",
			true,
			time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"december rolls into next year", "2025-12",
			true,
			time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"non-numeric month is ignored", "oops", false, time.Time{}, time.Time{}},
		{"non-numeric year is ignored", "20xx-10", false, time.Time{}, time.Time{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := ParseMonthFilter(tc.value, now)
			if ok != tc.ok {
				t.Fatalf("value %q: ok=%v, want %v", tc.value, ok, tc.ok)
			}
			if !ok {
				return
			}
			if !r.Start.Equal(tc.start) || !r.End.Equal(tc.end) {
				t.Fatalf("value %q: range [%v, %v), want [%v, %v)", tc.value, r.Start, r.End, tc.start, tc.end)
			}
		})
	}
}

func TestMonthRangeBoundaries(t *testing.T) {
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	r, ok := ParseMonthFilter("2025-10", now)
	if !ok {
		t.Fatal("expected a range")
	}

	firstInstant := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	nextMonthStart := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	if !r.Contains(firstInstant) {
		t.Fatal("the first instant of the month must be included")
	}
	if r.Contains(nextMonthStart) {
		t.Fatal("the first instant of the next month must be excluded")
	}
	if !r.Contains(nextMonthStart.Add(-time.Nanosecond)) {
		t.Fatal("the last instant of the month must be included")
	}
}
