package domain

import "time"

// sessionDateLayout is the storage format for session dates (UTC, day only).
const sessionDateLayout = "2006-01-02"

// Default selection history windows in days. When no passage is eligible
// inside HistoryDays the window widens once to WidenedHistoryDays.
const (
	DefaultHistoryDays        = 30
	DefaultWidenedHistoryDays = 60
)

// SessionDate formats a time as a calendar date in UTC.
// Session history has day granularity; two records for the same day merge.
func SessionDate(t time.Time) string {
	return t.UTC().Format(sessionDateLayout)
}

// SessionCutoff returns the date string for "days before t" in UTC.
// Records on or after the cutoff are excluded from selection.
func SessionCutoff(t time.Time, days int) string {
	return t.UTC().AddDate(0, 0, -days).Format(sessionDateLayout)
}

// SessionRecord maps one calendar date to the passages shown that day.
type SessionRecord struct {
	// Date is the UTC calendar date in YYYY-MM-DD form.
	Date string

	// PassageIDs are the passages shown on that date.
	PassageIDs []string
}
