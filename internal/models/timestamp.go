package models

import (
	"strings"
	"time"
)

// FormTimeLayout is the minute-precision layout used by editable form fields.
const FormTimeLayout = "2006-01-02T15:04"

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	FormTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
// It reports false for blank or unparseable input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatFormTime truncates t to the minute for populating an editable field.
func FormatFormTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(FormTimeLayout)
}
