package settlement

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TimeLayout is the canonical layout of every time key.
	TimeLayout = "2006-01-02T15:04:05Z"
	// DateLayout is the canonical layout of every date key.
	DateLayout = "2006-01-02"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	TimeLayout,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp shapes published by the upstream sources.
// Values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// FormatTimeKey renders t as a time key.
func FormatTimeKey(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// CanonicalTimeKey parses and re-renders a source timestamp.
func CanonicalTimeKey(value string) (string, error) {
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return FormatTimeKey(parsed), nil
}

// CanonicalDateKey normalizes a settlement date. Full timestamps are reduced
// to their date portion.
func CanonicalDateKey(value string) (string, error) {
	value = strings.TrimSpace(value)
	if idx := strings.IndexAny(value, "T "); idx > 0 {
		value = value[:idx]
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed.Format(DateLayout), nil
}

// DatePortion returns the date part of a canonical time key.
func DatePortion(timeKey string) string {
	date, _, _ := strings.Cut(timeKey, "T")
	return date
}

// PreviousDate returns the date key one calendar day before dateKey.
func PreviousDate(dateKey string) (string, error) {
	parsed, err := time.Parse(DateLayout, dateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, dateKey)
	}
	return parsed.AddDate(0, 0, -1).Format(DateLayout), nil
}
