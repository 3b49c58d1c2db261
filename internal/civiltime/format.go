package civiltime

import (
	"fmt"
	"strconv"
	"time"
)

// buddhistEraOffset converts a CE year into the Buddhist Era used by Thai documents.
const buddhistEraOffset = 543

// pastThreshold is how far in the past a start may be before it is flagged.
const pastThreshold = 7 * 24 * time.Hour

var thaiMonths = [...]string{
	time.January:   "มกราคม",
	time.February:  "กุมภาพันธ์",
	time.March:     "มีนาคม",
	time.April:     "เมษายน",
	time.May:       "พฤษภาคม",
	time.June:      "มิถุนายน",
	time.July:      "กรกฎาคม",
	time.August:    "สิงหาคม",
	time.September: "กันยายน",
	time.October:   "ตุลาคม",
	time.November:  "พฤศจิกายน",
	time.December:  "ธันวาคม",
}

// FormatDate renders t as a Thai long date in Bangkok, e.g. "15 มีนาคม 2568".
func FormatDate(t time.Time) string {
	t = t.In(Bangkok)
	return fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()], t.Year()+buddhistEraOffset)
}

// FormatTime renders t as a two-digit hour and minute in Bangkok, e.g. "09:00".
func FormatTime(t time.Time) string {
	return t.In(Bangkok).Format("15:04")
}

// FormatDateTime renders s as "15 มีนาคม 2568 14:00 น.". An empty string
// renders as empty and an unparsable one is returned unchanged.
func FormatDateTime(s string) string {
	if s == "" {
		return ""
	}
	t, err := ToAbsoluteTime(s)
	if err != nil {
		return s
	}
	return FormatDate(t) + " " + FormatTime(t) + " น."
}

// FormatRange renders a date range for a reply line. When both ends fall on
// the same Bangkok day only the end time is repeated:
//
//	15 มีนาคม 2568 14:00 น. - 16:00 น.
func FormatRange(start, end string) string {
	startFull := FormatDateTime(start)
	if end == "" {
		return startFull
	}
	e, err := ToAbsoluteTime(end)
	if err != nil {
		return startFull + " - " + end
	}
	if s, err := ToAbsoluteTime(start); err == nil && sameDay(s, e) {
		return startFull + " - " + FormatTime(e) + " น."
	}
	return startFull + " - " + FormatDateTime(end)
}

// YearLabel shows both calendars, e.g. "ค.ศ. 2025 (พ.ศ. 2568)". Reviewers use it
// to spot Buddhist-era years that were not converted.
func YearLabel(t time.Time) string {
	ce := t.In(Bangkok).Year()
	return "ค.ศ. " + strconv.Itoa(ce) + " (พ.ศ. " + strconv.Itoa(ce+buddhistEraOffset) + ")"
}

// IsPast reports whether s lies more than a week before now. Empty or
// unparsable strings are never past.
func IsPast(s string, now time.Time) bool {
	if s == "" {
		return false
	}
	t, err := Parse(s)
	if err != nil {
		return false
	}
	return t.Before(now.Add(-pastThreshold))
}

func sameDay(a, b time.Time) bool {
	a, b = a.In(Bangkok), b.In(Bangkok)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
