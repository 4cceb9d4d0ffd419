package shared

import (
	"strings"
	"time"
)

// DateLayout is the wire and display format for ledger dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, Invalid(ErrMissingField, field, raw)
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, Invalid(ErrValidation, field, raw)
	}
	return t, nil
}

// ValidateRange rejects ranges whose start is after end.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() {
		return Invalid(ErrMissingField, "start_date", "")
	}
	if end.IsZero() {
		return Invalid(ErrMissingField, "end_date", "")
	}
	if Day(start).After(Day(end)) {
		return Invalid(ErrInvalidDateRange, "start_date", start.Format(DateLayout)+" > "+end.Format(DateLayout))
	}
	return nil
}
