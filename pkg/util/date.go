package util

import "time"

// Datetime layouts used by persisted series. Intraday sources write the full
// layout, daily sources the date-only one. Both sort lexicographically.
const (
	LayoutDateTime = "2006-01-02 15:04:05"
	LayoutDate     = "2006-01-02"
)

// ParseDatetime tries the series layouts in order. Returns (t, true) if any
// worked. All series timestamps are UTC wall-clock.
func ParseDatetime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(LayoutDateTime, s, time.UTC); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(LayoutDate, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDateTime renders t as an intraday series timestamp in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(LayoutDateTime)
}

// FormatDate renders t as a daily series timestamp in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(LayoutDate)
}
