package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/govcal/internal/apperr"
	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/checksum"
	"github.com/starford/govcal/internal/civiltime"
	"github.com/starford/govcal/internal/event"
	"github.com/starford/govcal/internal/pipeline"
)

// User-facing messages.
const (
	msgNoImage         = "ไม่พบไฟล์ภาพ"
	msgUnsupportedType = "รองรับเฉพาะไฟล์ JPEG, PNG, WEBP, GIF"
	msgTooLarge        = "ขนาดไฟล์ต้องไม่เกิน 20MB"
	msgUnparsable      = "ไม่สามารถอ่านข้อมูลจากเอกสารได้ กรุณาลองใหม่อีกครั้ง"
	msgGeneric         = "เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง"
	msgCalendar        = "ไม่สามารถบันทึกลงปฏิทินได้ กรุณาตรวจสอบการตั้งค่า Google Calendar"
	msgBadPasskey      = "รหัสผ่านไม่ถูกต้อง"
	msgBadBody         = "ข้อมูลไม่ถูกต้อง"
)

const (
	imageField = "image"
	// multipartSlack covers boundaries and headers around the image part.
	multipartSlack = 1 << 20
	maxJSONBytes   = 1 << 20
)

// Handler holds the API route handlers.
type Handler struct {
	orch *pipeline.Orchestrator
	auth AuthConfig
	now  func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(orch *pipeline.Orchestrator, auth AuthConfig) *Handler {
	return &Handler{orch: orch, auth: auth, now: time.Now}
}

// Extract handles POST /api/extract (multipart/form-data, field "image").
// The event comes back unvalidated for review, with warnings attached.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	limit := h.orch.MaxBytes() + multipartSlack
	if r.ContentLength > limit {
		writeJSON(w, http.StatusBadRequest, errorBody(msgTooLarge))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, errorBody(msgTooLarge))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody(msgNoImage))
		return
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgNoImage))
		return
	}
	defer file.Close()

	img, err := h.orch.ReadImage(file, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, "read upload", err)
		return
	}

	e, err := h.orch.Extract(r.Context(), img)
	if err != nil {
		h.writeError(w, "extract", err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{Event: e, Warnings: h.warnings(e)})
}

// Calendar handles POST /api/calendar. The body is the reviewed event; the
// legacy flat shape is accepted when dates is absent.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadBody))
		return
	}
	e, err := event.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadBody))
		return
	}
	for i := range e.Dates {
		e.Dates[i].Start = civiltime.CompleteSeconds(e.Dates[i].Start)
		e.Dates[i].End = civiltime.CompleteSeconds(e.Dates[i].End)
	}

	links, err := h.orch.Save(r.Context(), pipeline.SourceAPI, e, event.Strict)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{Links: links})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(msgBadBody))
		return
	}
	if !h.auth.Enabled {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	if req.Passkey == "" || !checksum.Equal(req.Passkey, h.auth.Passkey) {
		writeJSON(w, http.StatusUnauthorized, errorBody(msgBadPasskey))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.cookieName(),
		Value:    h.auth.token(),
		Path:     "/",
		MaxAge:   int(h.auth.maxAge().Seconds()),
		HttpOnly: true,
		Secure:   h.auth.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) warnings(e event.Event) []Warning {
	now := h.now()
	warnings := []Warning{}
	for i, d := range e.Dates {
		if !civiltime.IsPast(d.Start, now) {
			continue
		}
		t, err := civiltime.Parse(d.Start)
		if err != nil {
			continue
		}
		warnings = append(warnings, Warning{
			Index:   i,
			Kind:    WarningPastDate,
			Message: fmt.Sprintf("วันที่อยู่ในอดีต กรุณาตรวจสอบปี: %s", civiltime.YearLabel(t)),
		})
	}
	return warnings
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnsupportedMediaType):
		writeJSON(w, http.StatusBadRequest, errorBody(msgUnsupportedType))
	case errors.Is(err, apperr.ErrPayloadTooLarge):
		writeJSON(w, http.StatusBadRequest, errorBody(msgTooLarge))
	case errors.Is(err, apperr.ErrInputConstraint):
		writeJSON(w, http.StatusBadRequest, errorBody(msgNoImage))
	case errors.Is(err, apperr.ErrUpstreamUnparsable):
		writeJSON(w, http.StatusBadGateway, errorBody(msgUnparsable))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgGeneric))
	}
}

func (h *Handler) writeSaveError(w http.ResponseWriter, err error) {
	var rej *event.Rejection
	if errors.As(err, &rej) {
		writeJSON(w, http.StatusBadRequest, errorBody(rej.Message()))
		return
	}

	var merr *calendar.Error
	if !errors.As(err, &merr) {
		slog.Error("save failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgCalendar))
		return
	}

	if merr.Policy == calendar.PolicyIsolate {
		results := make([]RangeResult, len(merr.Outcomes))
		for i, o := range merr.Outcomes {
			results[i] = RangeResult{Index: o.Index, Link: o.Link}
			if o.Err != nil {
				results[i].Error = msgCalendar
			}
		}
		writeJSON(w, http.StatusMultiStatus, CalendarPartial{Error: msgCalendar, Results: results})
		return
	}

	links := merr.Created()
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusInternalServerError, CalendarFailure{Error: msgCalendar, Links: links})
}
