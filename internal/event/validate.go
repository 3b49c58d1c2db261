package event

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/govcal/internal/apperr"
	"github.com/starford/govcal/internal/civiltime"
)

// Reason identifies which rule rejected an event.
type Reason string

// Rejection reasons, in the order the rules are checked.
const (
	MissingTitle        Reason = "missing_title"
	MissingDates        Reason = "missing_dates"
	IncompleteDateRange Reason = "incomplete_date_range"
	InvalidDateTime     Reason = "invalid_date_time"
	InvertedRange       Reason = "inverted_range"
)

// Rejection is returned by Validate. Index is the zero-based offending range
// for range-level reasons and -1 otherwise.
type Rejection struct {
	Reason Reason
	Index  int
}

func (r *Rejection) Error() string {
	if r.Index >= 0 {
		return fmt.Sprintf("event rejected: %s at range %d", r.Reason, r.Index)
	}
	return "event rejected: " + string(r.Reason)
}

// Is lets callers match any rejection with errors.Is(err, apperr.ErrValidation).
func (r *Rejection) Is(target error) bool {
	return target == apperr.ErrValidation
}

// Message is the Thai text shown to a reviewer.
func (r *Rejection) Message() string {
	switch r.Reason {
	case MissingTitle:
		return "ข้อมูลไม่ครบ: ต้องมีชื่อโครงการหรือหัวข้อการประชุม"
	case MissingDates:
		return "ข้อมูลไม่ครบ: ต้องมีวันเริ่มต้นและวันสิ้นสุด"
	case IncompleteDateRange:
		return fmt.Sprintf("ข้อมูลไม่ครบ: ช่วงวันที่ %d ต้องมีวันเริ่มต้นและวันสิ้นสุด", r.Index+1)
	case InvalidDateTime:
		return fmt.Sprintf("รูปแบบวันเวลาไม่ถูกต้อง (ช่วงวันที่ %d)", r.Index+1)
	case InvertedRange:
		return fmt.Sprintf("วันเริ่มต้นต้องมาก่อนวันสิ้นสุด (ช่วงวันที่ %d)", r.Index+1)
	default:
		return "ข้อมูลไม่ถูกต้อง"
	}
}

// Profile selects how much of the rule set applies.
type Profile int

const (
	// Strict runs every rule. The review form and the MCP tools use it.
	Strict Profile = iota
	// Presence needs a title and at least one range with both ends, and
	// skips chronological ordering. The chat webhook uses it: there is no
	// reviewer to fix a range, and the document is trusted.
	Presence
)

func (p Profile) String() string {
	if p == Presence {
		return "presence"
	}
	return "strict"
}

// Validate checks e under the strict profile.
func Validate(e Event) error {
	return Strict.Validate(e)
}

// Validate checks e; the first failing rule wins. It returns nil or a *Rejection.
func (p Profile) Validate(e Event) error {
	if err := validation.Validate(strings.TrimSpace(e.Title), validation.Required); err != nil {
		return &Rejection{Reason: MissingTitle, Index: -1}
	}
	if err := validation.Validate(e.Dates, validation.Required); err != nil {
		return &Rejection{Reason: MissingDates, Index: -1}
	}
	if p == Presence {
		if !e.HasCompleteRange() {
			return &Rejection{Reason: IncompleteDateRange, Index: 0}
		}
		return nil
	}
	for i := range e.Dates {
		d := e.Dates[i]
		if err := validation.ValidateStruct(&d,
			validation.Field(&d.Start, validation.Required),
			validation.Field(&d.End, validation.Required),
		); err != nil {
			return &Rejection{Reason: IncompleteDateRange, Index: i}
		}
	}
	for i, d := range e.Dates {
		start, err := civiltime.Parse(d.Start)
		if err != nil {
			return &Rejection{Reason: InvalidDateTime, Index: i}
		}
		end, err := civiltime.Parse(d.End)
		if err != nil {
			return &Rejection{Reason: InvalidDateTime, Index: i}
		}
		if !start.Before(end) {
			return &Rejection{Reason: InvertedRange, Index: i}
		}
	}
	return nil
}
