package api

import "github.com/starford/govcal/internal/event"

// Warning flags a value a reviewer should double-check before saving.
type Warning struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WarningPastDate marks a range starting more than a week ago, usually a
// Buddhist-era year that was not converted.
const WarningPastDate = "past_date"

// ExtractResponse is the normalized event plus review warnings.
type ExtractResponse struct {
	event.Event
	Warnings []Warning `json:"warnings"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Passkey string `json:"passkey"`
}

// CalendarResponse lists the created entries, index-aligned with dates.
type CalendarResponse struct {
	Links []string `json:"links"`
}

// CalendarFailure is returned when the abort policy stopped part-way.
// Links holds the entries created before the failure.
type CalendarFailure struct {
	Error string   `json:"error"`
	Links []string `json:"links"`
}

// RangeResult is the per-range outcome under the isolate policy.
type RangeResult struct {
	Index int    `json:"index"`
	Link  string `json:"link,omitempty"`
	Error string `json:"error,omitempty"`
}

// CalendarPartial is returned with 207 when some ranges failed under the
// isolate policy.
type CalendarPartial struct {
	Error   string        `json:"error"`
	Results []RangeResult `json:"results"`
}
