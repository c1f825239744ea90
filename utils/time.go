// Package utils provides utility functions for the application.
package utils

import (
	"strings"
	"time"
)

// DateLayout is the YYYY-MM-DD form used for per-day maintenance of uploads
const DateLayout = "2006-01-02"

// logTimeLayouts are tried in order when parsing the Log Time column
var logTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	DateLayout,
	"01/02/2006",
}

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// TimeToUTCPtr converts a time pointer to UTC if it's not already
func TimeToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// ParseLogTime parses an exported event timestamp. Unparseable or empty input yields nil.
// Timestamps without a zone are read as UTC.
func ParseLogTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range logTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// MinMaxTime returns the earliest and latest non-nil times
func MinMaxTime(times []*time.Time) (earliest, latest *time.Time) {
	for _, t := range times {
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
		if latest == nil || t.After(*latest) {
			latest = t
		}
	}
	return earliest, latest
}
