// Package calendar turns validated events into calendar-service entries.
package calendar

import (
	"context"

	"github.com/starford/govcal/internal/civiltime"
)

// Entry is one create-event request. Start and End are passed through
// untouched together with TimeZone; the service resolves the offset, so
// callers must not pre-correct them.
type Entry struct {
	Summary     string
	Location    string
	Description string
	Start       string
	End         string
	TimeZone    string
}

// Creator is the calendar-service collaborator. CreateEvent returns the web
// link of the created entry, or "" when the service omits one.
type Creator interface {
	CreateEvent(ctx context.Context, entry Entry) (string, error)
}

func newEntry(title, location, description, start, end string) Entry {
	return Entry{
		Summary:     title,
		Location:    location,
		Description: description,
		Start:       start,
		End:         end,
		TimeZone:    civiltime.Zone,
	}
}
