package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/civiltime"
	"github.com/starford/govcal/internal/event"
)

// Fixed chat replies.
const (
	ReplyFailure      = "❌ เกิดข้อผิดพลาดในการประมวลผล\nกรุณาลองใหม่อีกครั้ง"
	ReplyNoDate       = "⚠️ ไม่พบข้อมูลวันเวลาในเอกสาร\nกรุณาตรวจสอบภาพและลองใหม่อีกครั้ง"
	ReplyInstructions = "📎 กรุณาส่งภาพถ่ายเอกสารราชการ\nระบบจะอ่านข้อมูลและบันทึกลง Google Calendar ให้อัตโนมัติ\n\nรองรับ: JPEG, PNG"
)

const (
	confirmationHeader = "✅ บันทึกลงปฏิทินแล้ว!"
	descriptionLimit   = 100
)

// ComposeSummary renders the event body: title, one line per date range,
// then location and a shortened description when present. Ranges are
// numbered only when there is more than one.
func ComposeSummary(e event.Event) string {
	lines := []string{"📋 " + e.Title}

	numbered := len(e.Dates) > 1
	for i, d := range e.Dates {
		if numbered {
			lines = append(lines, fmt.Sprintf("📅 วันที่ %d: %s", i+1, civiltime.FormatRange(d.Start, d.End)))
		} else {
			lines = append(lines, "📅 "+civiltime.FormatRange(d.Start, d.End))
		}
	}

	if e.Location != "" {
		lines = append(lines, "📍 "+e.Location)
	}
	if e.Description != "" {
		lines = append(lines, "📝 "+truncate(e.Description, descriptionLimit))
	}
	return strings.Join(lines, "\n")
}

// ComposeConfirmation renders the reply sent after materialization. outcomes
// is index-aligned with e.Dates; failed ranges get a warning line instead of
// a link, skipped ranges get nothing.
func ComposeConfirmation(e event.Event, outcomes []calendar.Outcome) string {
	var b strings.Builder
	b.WriteString(confirmationHeader)
	b.WriteString("\n\n")
	b.WriteString(ComposeSummary(e))
	b.WriteString("\n")

	numbered := len(outcomes) > 1
	for _, o := range outcomes {
		switch {
		case o.OK() && numbered:
			fmt.Fprintf(&b, "\n🔗 วันที่ %d: %s", o.Index+1, o.Link)
		case o.OK():
			b.WriteString("\n🔗 " + o.Link)
		case errors.Is(o.Err, calendar.ErrSkipped):
		default:
			fmt.Fprintf(&b, "\n⚠️ วันที่ %d: บันทึกไม่สำเร็จ", o.Index+1)
		}
	}
	return b.String()
}

func outcomesFromLinks(links []string) []calendar.Outcome {
	out := make([]calendar.Outcome, len(links))
	for i, l := range links {
		out[i] = calendar.Outcome{Index: i, Link: l}
	}
	return out
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
