package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/event"
)

func TestComposeConfirmation_SingleRange(t *testing.T) {
	e := event.Event{
		Title:       "ประชุม",
		Dates:       []event.DateRange{{Start: "2025-03-15T14:00:00", End: "2025-03-15T16:00:00"}},
		Location:    "ห้อง A",
		Description: "วาระ",
	}
	got := ComposeConfirmation(e, outcomesFromLinks([]string{"https://cal/1"}))
	want := strings.Join([]string{
		"✅ บันทึกลงปฏิทินแล้ว!",
		"",
		"📋 ประชุม",
		"📅 15 มีนาคม 2568 14:00 น. - 16:00 น.",
		"📍 ห้อง A",
		"📝 วาระ",
		"",
		"🔗 https://cal/1",
	}, "\n")
	if got != want {
		t.Errorf("confirmation =\n%s\nwant\n%s", got, want)
	}
}

func TestComposeSummary_TruncatesByRune(t *testing.T) {
	desc := strings.Repeat("ก", 101)
	got := ComposeSummary(event.Event{Title: "t", Description: desc})
	want := "📝 " + strings.Repeat("ก", 100) + "..."
	if !strings.HasSuffix(got, want) {
		t.Errorf("summary = %q", got)
	}

	exact := strings.Repeat("ก", 100)
	if got := ComposeSummary(event.Event{Title: "t", Description: exact}); strings.Contains(got, "...") {
		t.Errorf("100 runes should not be truncated: %q", got)
	}
}

func TestComposeSummary_CrossDayRange(t *testing.T) {
	e := event.Event{Title: "อบรม", Dates: []event.DateRange{{Start: "2025-03-15T09:00:00", End: "2025-03-16T16:00:00"}}}
	got := ComposeSummary(e)
	if !strings.Contains(got, "📅 15 มีนาคม 2568 09:00 น. - 16 มีนาคม 2568 16:00 น.") {
		t.Errorf("summary = %q", got)
	}
}

func TestComposeConfirmation_SkippedRangesOmitted(t *testing.T) {
	e := event.Event{Title: "t", Dates: []event.DateRange{
		{Start: "2025-03-15T09:00:00", End: "2025-03-15T10:00:00"},
		{Start: "2025-03-16T09:00:00", End: "2025-03-16T10:00:00"},
		{Start: "2025-03-17T09:00:00", End: "2025-03-17T10:00:00"},
	}}
	got := ComposeConfirmation(e, []calendar.Outcome{
		{Index: 0, Link: "https://cal/1"},
		{Index: 1, Err: errFake},
		{Index: 2, Err: calendar.ErrSkipped},
	})
	if !strings.Contains(got, "⚠️ วันที่ 2: บันทึกไม่สำเร็จ") {
		t.Errorf("missing failure line:\n%s", got)
	}
	if strings.Contains(got, "วันที่ 3: บันทึก") || strings.Contains(got, "🔗 วันที่ 3") {
		t.Errorf("skipped range should be silent:\n%s", got)
	}
}

var errFake = errors.New("fake")
