// Package civiltime resolves document date-time strings against the Thai civil
// timezone and renders them for Thai readers.
//
// The vision model emits local wall-clock values such as "2025-03-15T14:00:00"
// without an offset. Parsing those as UTC shifts every displayed time by seven
// hours, so every string read from an extracted event goes through Parse before
// it is shown to a person. Values sent to the calendar service are NOT passed
// through here: the service receives the raw string plus the zone name and
// resolves the offset itself.
package civiltime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Zone is the IANA name of the civil timezone assumed for offset-less strings.
const Zone = "Asia/Bangkok"

// Bangkok is the civil location. Thailand has no daylight saving, so the fixed
// +07:00 zone is used when the tz database is unavailable.
var Bangkok = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation(Zone)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// ErrEmpty is returned by Parse for an empty string.
var ErrEmpty = errors.New("empty date-time")

// Layouts that carry their own offset. The string is absolute as written.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// Layouts without an offset. The string is wall-clock time in Bangkok.
var civilLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse returns the instant represented by s. A string with an explicit offset
// or Z suffix keeps its instant; a string without one is read as Asia/Bangkok
// wall-clock time.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return AssumeCivil(s)
}

// AssumeCivil parses an offset-less string as Asia/Bangkok local time.
func AssumeCivil(s string) (time.Time, error) {
	for _, layout := range civilLayouts {
		if t, err := time.ParseInLocation(layout, s, Bangkok); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", s)
}

// ToAbsoluteTime is Parse with the display-layer default: an empty string maps
// to now instead of failing. Use it only for formatting; empty dates must be
// rejected by validation before any write.
func ToAbsoluteTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Now(), nil
	}
	return Parse(s)
}

// CompleteSeconds turns an HTML datetime-local value ("2025-03-15T14:00") into
// a seconds-precision string. Anything else is returned unchanged.
func CompleteSeconds(s string) string {
	if len(s) == len("2006-01-02T15:04") && s[10] == 'T' {
		return s + ":00"
	}
	return s
}
