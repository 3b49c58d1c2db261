// Package event defines the canonical shape every extraction converges on,
// together with the normalizer that produces it and the validator that guards
// calendar writes.
package event

// DateRange is one occurrence of an event. Values are ISO-8601-like strings
// that may lack a UTC offset; see package civiltime.
type DateRange struct {
	Start string `json:"startDateTime"`
	End   string `json:"endDateTime"`
}

// Complete reports whether both ends are populated.
func (d DateRange) Complete() bool {
	return d.Start != "" && d.End != ""
}

// Event is the canonical extraction result. Dates keeps the order found in
// the document; that order numbers the ranges in replies and decides the
// order in which calendar entries are created.
type Event struct {
	Title       string      `json:"title"`
	Dates       []DateRange `json:"dates"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
}

// HasCompleteRange reports whether at least one range has both ends.
func (e Event) HasCompleteRange() bool {
	for _, d := range e.Dates {
		if d.Complete() {
			return true
		}
	}
	return false
}

// CompleteRanges returns a copy of e keeping only the ranges with both ends.
func (e Event) CompleteRanges() Event {
	out := e
	out.Dates = make([]DateRange, 0, len(e.Dates))
	for _, d := range e.Dates {
		if d.Complete() {
			out.Dates = append(out.Dates, d)
		}
	}
	return out
}
