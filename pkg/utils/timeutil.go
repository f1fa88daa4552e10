package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for dataset records.
const DateLayout = "2006-01-02"

// timestampLayouts are accepted for metadata.last_updated, newest style
// first. Files written by older tooling carry a zoneless ISO timestamp
// with microseconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatTimestamp formats t for metadata.last_updated.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseTimestamp parses a last_updated value in any known layout.
// Zoneless values are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatDisplayTime renders t the way the dashboard shows "last updated",
// e.g. 2024/1/2 15:04:05.
func FormatDisplayTime(t time.Time) string {
	return t.Format("2006/1/2 15:04:05")
}

// DateRange returns every calendar date from start to end inclusive as
// YYYY-MM-DD strings. It returns nil when end is before start.
func DateRange(start, end time.Time) []string {
	s := truncateDay(start)
	e := truncateDay(end)
	if e.Before(s) {
		return nil
	}
	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDate(d))
	}
	return out
}

// LookbackRange returns the range [now-days, now] as calendar days.
func LookbackRange(now time.Time, days int) (time.Time, time.Time) {
	end := truncateDay(now)
	return end.AddDate(0, 0, -days), end
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
