package event

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/starford/govcal/internal/apperr"
)

// Keys of the raw extraction object. The legacy shape carries startDateTime
// and endDateTime at the top level; the current one nests them under dates.
const (
	keyTitle       = "title"
	keyDates       = "dates"
	keyStart       = "startDateTime"
	keyEnd         = "endDateTime"
	keyLocation    = "location"
	keyDescription = "description"
)

// Parse checks that raw is a JSON document and normalizes it.
func Parse(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, fmt.Errorf("%w: model output is not JSON", apperr.ErrUpstreamUnparsable)
	}
	return Normalize(gjson.ParseBytes(raw)), nil
}

// Normalize maps a raw extraction onto Event. It never fails: absent scalars
// become empty strings. A non-empty dates array is copied element by element,
// malformed entries included, so validation can report them by index.
// Otherwise a single range is built from the legacy flat fields.
func Normalize(raw gjson.Result) Event {
	e := Event{
		Title:       raw.Get(keyTitle).String(),
		Location:    raw.Get(keyLocation).String(),
		Description: raw.Get(keyDescription).String(),
	}

	if dates := raw.Get(keyDates); dates.IsArray() && len(dates.Array()) > 0 {
		e.Dates = rangesFrom(dates)
		return e
	}

	e.Dates = []DateRange{rangeFrom(raw)}
	return e
}

// Decode reads an event that a reviewer already edited. A dates key is taken
// as-is, even when empty, so removing every range is reported as missing
// dates. The legacy flat fields are read only when dates is absent.
func Decode(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, fmt.Errorf("%w: body is not JSON", apperr.ErrInputConstraint)
	}
	doc := gjson.ParseBytes(raw)
	dates := doc.Get(keyDates)
	if !dates.Exists() {
		return Normalize(doc), nil
	}
	if dates.Type != gjson.Null && !dates.IsArray() {
		return Event{}, fmt.Errorf("%w: dates is not an array", apperr.ErrInputConstraint)
	}
	return Event{
		Title:       doc.Get(keyTitle).String(),
		Dates:       rangesFrom(dates),
		Location:    doc.Get(keyLocation).String(),
		Description: doc.Get(keyDescription).String(),
	}, nil
}

func rangesFrom(dates gjson.Result) []DateRange {
	items := dates.Array()
	out := make([]DateRange, len(items))
	for i, item := range items {
		out[i] = rangeFrom(item)
	}
	return out
}

func rangeFrom(obj gjson.Result) DateRange {
	return DateRange{
		Start: obj.Get(keyStart).String(),
		End:   obj.Get(keyEnd).String(),
	}
}
