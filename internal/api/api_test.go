package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/pipeline"
	"github.com/starford/govcal/internal/testutil"
)

type testEnv struct {
	extractor *testutil.Extractor
	creator   *testutil.Creator
	router    http.Handler
}

func newTestEnv(t *testing.T, auth AuthConfig, policy calendar.Policy, reply string) *testEnv {
	t.Helper()
	env := &testEnv{
		extractor: &testutil.Extractor{Reply: reply},
		creator:   &testutil.Creator{},
	}
	m := calendar.NewMaterializer(env.creator, policy, testutil.Logger())
	orch := pipeline.New(env.extractor, m, pipeline.WithLogger(testutil.Logger()))
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	env.router = NewRouter(orch, auth, sseHandler)
	return env
}

func imageUpload(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="doc"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

const meetingJSON = `{"title":"ประชุม","dates":[{"startDateTime":"2025-03-15T14:00:00","endDateTime":"2025-03-15T16:00:00"}],"location":"ห้อง A","description":""}`

func TestExtract_ReturnsEventWithWarnings(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, meetingJSON)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, imageUpload(t, "image", "image/png", []byte("png")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ExtractResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "ประชุม" || len(resp.Dates) != 1 || resp.Location != "ห้อง A" {
		t.Errorf("event = %+v", resp.Event)
	}
	// 2025-03-15 is well behind the clock these tests run on.
	if len(resp.Warnings) != 1 || resp.Warnings[0].Kind != WarningPastDate {
		t.Fatalf("warnings = %+v", resp.Warnings)
	}
	if !strings.Contains(resp.Warnings[0].Message, "พ.ศ. 2568") {
		t.Errorf("warning = %q", resp.Warnings[0].Message)
	}
}

func TestExtract_FutureDateHasNoWarnings(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	next := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	env.extractor.Reply = `{"title":"t","startDateTime":"` + next + `T09:00:00","endDateTime":"` + next + `T10:00:00"}`

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, imageUpload(t, "image", "image/jpeg", []byte("jpg")))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"warnings":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestExtract_InputConstraints(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
		want string
	}{
		{
			name: "missing field",
			req:  func(t *testing.T) *http.Request { return imageUpload(t, "file", "image/png", []byte("x")) },
			want: msgNoImage,
		},
		{
			name: "pdf",
			req:  func(t *testing.T) *http.Request { return imageUpload(t, "image", "application/pdf", []byte("%PDF")) },
			want: msgUnsupportedType,
		},
		{
			name: "21 MiB",
			req: func(t *testing.T) *http.Request {
				return imageUpload(t, "image", "image/jpeg", make([]byte, 21<<20))
			},
			want: msgTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, meetingJSON)
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, tt.req(t))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := decodeError(t, w); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
			if env.extractor.Calls() != 0 {
				t.Errorf("extractor calls = %d, want 0", env.extractor.Calls())
			}
		})
	}
}

func TestExtract_UnparsableIs502(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "I cannot read this document")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, imageUpload(t, "image", "image/png", []byte("x")))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if got := decodeError(t, w); got != msgUnparsable {
		t.Errorf("error = %q", got)
	}
}

func TestExtract_UpstreamErrorIsGeneric(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	env.extractor.Err = testutil.ErrScripted
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, imageUpload(t, "image", "image/png", []byte("x")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := decodeError(t, w); got != msgGeneric {
		t.Errorf("error = %q", got)
	}
}

func postCalendar(env *testEnv, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/calendar", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestCalendar_CreatesOneEntryPerRange(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	w := postCalendar(env, `{"title":"สัมมนา","dates":[
		{"startDateTime":"2025-06-01T09:00","endDateTime":"2025-06-01T12:00"},
		{"startDateTime":"2025-06-02T09:00:00","endDateTime":"2025-06-02T12:00:00"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp CalendarResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Links) != 2 || resp.Links[1] != "https://calendar.example/event/2" {
		t.Errorf("links = %v", resp.Links)
	}

	entries := env.creator.Entries()
	if entries[0].Start != "2025-06-01T09:00:00" || entries[0].End != "2025-06-01T12:00:00" {
		t.Errorf("datetime-local values not completed: %+v", entries[0])
	}
}

func TestCalendar_ValidationReasons(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"title":"  ","dates":[{"startDateTime":"2025-03-15T14:00:00","endDateTime":"2025-03-15T16:00:00"}]}`, "ข้อมูลไม่ครบ: ต้องมีชื่อโครงการหรือหัวข้อการประชุม"},
		{"all ranges removed", `{"title":"ประชุม","dates":[],"location":"ห้อง A","description":""}`, "ข้อมูลไม่ครบ: ต้องมีวันเริ่มต้นและวันสิ้นสุด"},
		{"missing end", `{"title":"t","startDateTime":"2025-03-15T14:00:00"}`, "ข้อมูลไม่ครบ: ช่วงวันที่ 1 ต้องมีวันเริ่มต้นและวันสิ้นสุด"},
		{"inverted", `{"title":"t","dates":[{"startDateTime":"2025-03-15T16:00:00","endDateTime":"2025-03-15T14:00:00"}]}`, "วันเริ่มต้นต้องมาก่อนวันสิ้นสุด (ช่วงวันที่ 1)"},
		{"equal", `{"title":"t","dates":[{"startDateTime":"2025-03-15T14:00:00","endDateTime":"2025-03-15T14:00:00"}]}`, "วันเริ่มต้นต้องมาก่อนวันสิ้นสุด (ช่วงวันที่ 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
			w := postCalendar(env, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := decodeError(t, w); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
			if n := len(env.creator.Entries()); n != 0 {
				t.Errorf("calendar calls = %d, want 0", n)
			}
		})
	}
}

func TestCalendar_BadJSON(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	if w := postCalendar(env, `{"title":`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

const twoRangeBody = `{"title":"t","dates":[
	{"startDateTime":"2025-06-01T09:00:00","endDateTime":"2025-06-01T12:00:00"},
	{"startDateTime":"2025-06-02T09:00:00","endDateTime":"2025-06-02T12:00:00"}]}`

func TestCalendar_AbortFailureReportsCreatedLinks(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	env.creator.FailAt = map[int]bool{1: true}

	w := postCalendar(env, twoRangeBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp CalendarFailure
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != msgCalendar || len(resp.Links) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCalendar_IsolateFailureIsMultiStatus(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyIsolate, "")
	env.creator.FailAt = map[int]bool{0: true}

	w := postCalendar(env, twoRangeBody)
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", w.Code)
	}
	var resp CalendarPartial
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Error == "" || resp.Results[1].Link != "https://calendar.example/event/2" {
		t.Errorf("results = %+v", resp.Results)
	}
}

var passkeyAuth = AuthConfig{Enabled: true, Passkey: "s3cret"}

func login(t *testing.T, env *testEnv, passkey string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Passkey: passkey})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestLogin_SetsCookieAndOpensGate(t *testing.T) {
	env := newTestEnv(t, passkeyAuth, calendar.PolicyAbort, meetingJSON)

	w := login(t, env, "s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "oit_auth" || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 7*24*60*60 {
		t.Errorf("cookie = %+v", c)
	}
	if c.Value == "s3cret" {
		t.Error("cookie should not carry the raw passkey")
	}

	req := imageUpload(t, "image", "image/png", []byte("x"))
	req.AddCookie(c)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed extract = %d, want 200", w.Code)
	}
}

func TestLogin_WrongPasskey(t *testing.T) {
	env := newTestEnv(t, passkeyAuth, calendar.PolicyAbort, "")
	w := login(t, env, "nope")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login = %d, want 401", w.Code)
	}
	if got := decodeError(t, w); got != msgBadPasskey {
		t.Errorf("error = %q", got)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no cookie expected on failure")
	}
}

func TestPasskeyMiddleware_Gate(t *testing.T) {
	env := newTestEnv(t, passkeyAuth, calendar.PolicyAbort, meetingJSON)

	for _, path := range []string{"/extract", "/calendar"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without cookie = %d, want 401", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: "oit_auth", Value: "s3cret"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("events with raw passkey cookie = %d, want 401", w.Code)
	}
}

func TestPasskeyMiddleware_Disabled(t *testing.T) {
	env := newTestEnv(t, AuthConfig{}, calendar.PolicyAbort, "")
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("events with auth disabled = %d, want 200", w.Code)
	}
}
