package locale

import (
	"time"
	_ "time/tzdata"
)

// DefaultDateFormat is used for unknown or empty formats.
const DefaultDateFormat = "MM/DD/YYYY"

var dateLayouts = map[string]string{
	"L":             "01/02/2006",
	"MM/DD/YYYY":    "01/02/2006",
	"DD-MM-YYYY":    "02-01-2006",
	"DD/MM/YYYY":    "02/01/2006",
	"LL":            "January 02, 2006",
	"DD MMM, YYYY":  "02 Jan, 2006",
	"YYYY-MM-DD":    "2006-01-02",
	"MM-DD-YYYY":    "01-02-2006",
	"MM.DD.YYYY":    "01.02.2006",
	"MMM DD, YYYY":  "Jan 02, 2006",
	"MMMM DD, YYYY": "January 02, 2006",
	"DD MMMM, YYYY": "02 January, 2006",
	"DD.MM.YYYY":    "02.01.2006",
}

// DateFormatter renders instants in an organization's timezone.
type DateFormatter struct {
	layout   string
	location *time.Location
}

// NewDateFormatter builds a formatter from the organization's preferences.
// Unknown formats fall back to DefaultDateFormat and unknown timezones to
// UTC.
func NewDateFormatter(dateFormat, timezone string, is12Hour bool) *DateFormatter {
	layout, ok := dateLayouts[dateFormat]
	if !ok {
		layout = dateLayouts[DefaultDateFormat]
	}
	if is12Hour {
		layout += ", 03:04:05 PM"
	} else {
		layout += ", 15:04:05"
	}
	layout += " GMT -07:00"

	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return &DateFormatter{layout: layout, location: loc}
}

// Format renders t, e.g. "06/01/2024, 09:30:00 GMT -03:00".
func (f *DateFormatter) Format(t time.Time) string {
	return t.In(f.location).Format(f.layout)
}

// FormatPtr renders t or returns fallback when t is nil.
func (f *DateFormatter) FormatPtr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return f.Format(*t)
}

// Location returns the formatter's timezone.
func (f *DateFormatter) Location() *time.Location { return f.location }
