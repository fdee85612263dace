// ABOUTME: Lenient timestamp type for backend JSON
// ABOUTME: Accepts RFC 3339, naive datetimes and date-only strings
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Time decodes the handful of timestamp shapes the backend emits.
// The zero value marshals to null.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func NewTime(t time.Time) Time { return Time{Time: t} }

// ParseTime parses any of the accepted layouts. Naive values are UTC.
func ParseTime(s string) (Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Time{Time: t}, nil
		}
	}
	return Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Date renders the calendar date or an empty string.
func (t Time) Date() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
