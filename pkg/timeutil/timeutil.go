// Package timeutil provides calendar-date utilities for student records.
// Enrollment dates are plain calendar dates: they are stored as ISO dates
// (YYYY-MM-DD) and represented in memory as UTC midnight.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used in storage and CSV.
const DateLayout = "2006-01-02"

// nowFunc is replaced in tests.
var nowFunc = time.Now

// Now returns the current time in UTC.
func Now() time.Time {
	return nowFunc().UTC()
}

// Today returns the current calendar date as UTC midnight.
func Today() time.Time {
	return StartOfDay(Now())
}

// Date creates a calendar date (UTC midnight).
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay drops the clock part of t, keeping t's calendar date.
// The date is taken in t's own location so a local "today" stays today.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseISODate parses user input: an ISO calendar date or an RFC 3339
// timestamp, which is truncated to its date. Trailing text is rejected.
func ParseISODate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("timeutil: empty date")
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return StartOfDay(t), nil
	}

	return time.Time{}, fmt.Errorf("timeutil: invalid date %q, expected YYYY-MM-DD", value)
}

// ParseDate parses a stored calendar date. Besides ParseISODate input it
// accepts any value that starts with YYYY-MM-DD, which covers drivers that
// return DATE columns in their own timestamp format.
func ParseDate(value string) (time.Time, error) {
	t, err := ParseISODate(value)
	if err == nil {
		return t, nil
	}

	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		if t, err := time.Parse(DateLayout, value[:len(DateLayout)]); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("timeutil: invalid date %q, expected YYYY-MM-DD", value)
}

// IsSameDay checks if two times fall on the same calendar date.
func IsSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
