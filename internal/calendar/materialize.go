package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/govcal/internal/apperr"
	"github.com/starford/govcal/internal/event"
)

// Policy decides what happens after one create-event call fails.
type Policy string

const (
	// PolicyAbort stops at the first failure. Entries created before it stay
	// in the calendar; there is no rollback.
	PolicyAbort Policy = "abort"
	// PolicyIsolate attempts every range and reports each outcome.
	PolicyIsolate Policy = "isolate"
)

// ErrSkipped marks ranges never attempted because an earlier call failed.
var ErrSkipped = errors.New("not attempted")

// Outcome is the result for one date range.
type Outcome struct {
	Index int
	Link  string
	Err   error
}

// OK reports whether the entry was created.
func (o Outcome) OK() bool { return o.Err == nil }

// Error reports a materialization in which at least one range failed.
// Outcomes is index-aligned with the event's dates.
type Error struct {
	Policy   Policy
	Outcomes []Outcome
}

func (e *Error) Error() string {
	var failed []string
	for _, o := range e.Outcomes {
		if o.Err != nil && !errors.Is(o.Err, ErrSkipped) {
			failed = append(failed, fmt.Sprintf("range %d: %v", o.Index, o.Err))
		}
	}
	return "materialization failed: " + strings.Join(failed, "; ")
}

// Unwrap exposes the taxonomy sentinel and the first underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{apperr.ErrMaterialization}
	for _, o := range e.Outcomes {
		if o.Err != nil && !errors.Is(o.Err, ErrSkipped) {
			return append(errs, o.Err)
		}
	}
	return errs
}

// Created returns the links of the entries that were created, in range order.
func (e *Error) Created() []string {
	var links []string
	for _, o := range e.Outcomes {
		if o.OK() {
			links = append(links, o.Link)
		}
	}
	return links
}

// Materializer fans one event out into one calendar entry per date range.
type Materializer struct {
	creator Creator
	policy  Policy
	logger  *slog.Logger
}

// NewMaterializer returns a Materializer. An empty policy means PolicyAbort.
func NewMaterializer(creator Creator, policy Policy, logger *slog.Logger) *Materializer {
	if policy == "" {
		policy = PolicyAbort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{creator: creator, policy: policy, logger: logger}
}

// Policy returns the configured failure policy.
func (m *Materializer) Policy() Policy { return m.policy }

// Materialize issues exactly one create call per date range, sequentially and
// in order. On success it returns the links index-aligned with e.Dates. On
// failure it returns *Error; the caller is expected to have validated e.
func (m *Materializer) Materialize(ctx context.Context, e event.Event) ([]string, error) {
	if len(e.Dates) == 0 {
		return nil, fmt.Errorf("%w: no date ranges", apperr.ErrValidation)
	}

	outcomes := make([]Outcome, len(e.Dates))
	failed := false
	for i, d := range e.Dates {
		outcomes[i].Index = i
		if failed && m.policy == PolicyAbort {
			outcomes[i].Err = ErrSkipped
			continue
		}
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			failed = true
			continue
		}

		link, err := m.creator.CreateEvent(ctx, newEntry(e.Title, e.Location, e.Description, d.Start, d.End))
		if err != nil {
			m.logger.Warn("calendar entry failed",
				slog.Int("range", i),
				slog.String("policy", string(m.policy)),
				slog.String("error", err.Error()))
			outcomes[i].Err = err
			failed = true
			continue
		}
		m.logger.Debug("calendar entry created", slog.Int("range", i), slog.String("link", link))
		outcomes[i].Link = link
	}

	if failed {
		return nil, &Error{Policy: m.policy, Outcomes: outcomes}
	}

	links := make([]string, len(outcomes))
	for i, o := range outcomes {
		links[i] = o.Link
	}
	return links, nil
}
