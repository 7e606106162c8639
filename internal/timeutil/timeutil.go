// Package timeutil parses and formats the timestamps found in
// backend session and turn payloads.
package timeutil

import (
	"strings"
	"time"
)

// layouts are tried in order by Parse. Timestamps without a
// zone are interpreted as UTC, which is how the backend stores
// them.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse parses s using the known layouts. The result is in UTC.
// ok is false for empty or unrecognized input.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FromMillis converts Unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Ptr returns a pointer to the RFC3339Nano UTC form of t, or
// nil for the zero time.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// Format returns t as RFC3339Nano in UTC, or "" for the zero
// time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
