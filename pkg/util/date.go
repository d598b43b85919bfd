package util

import (
	"strings"
	"time"
)

// Layouts accepted for calendar dates, most common first.
var dateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02/01/2006",
	"2-1-2006",
}

// ParseCivilDate parses a calendar date in any of the accepted layouts and
// returns it as UTC midnight. Returns (t, true) if any layout worked.
func ParseCivilDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CivilDate drops the clock part of t, keeping the calendar date as seen in
// t's own location, and returns it as UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a civil date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return CivilDate(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}

// EpochDay returns the number of days since 1970-01-01 for the civil date of t.
func EpochDay(t time.Time) int {
	return int(CivilDate(t).Unix() / 86400)
}

// FromEpochDay is the inverse of EpochDay.
func FromEpochDay(n int) time.Time {
	return time.Unix(int64(n)*86400, 0).UTC()
}

// FormatISODate renders a civil date as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatMarketDate renders a civil date in the DD-MM-YYYY form used by snapshot tables.
func FormatMarketDate(t time.Time) string {
	return t.Format("02-01-2006")
}
