package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/advdiff/internal/cache"
	"github.com/hpungsan/advdiff/internal/config"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/record"
	"github.com/hpungsan/advdiff/internal/source"
)

// stubHub serves a tiny original and adversarial collection.
type stubHub struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (s *stubHub) Load(_ context.Context, ref source.Ref) ([]record.Record, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	if ref.Config == "plain_text" {
		return []record.Record{
			{ID: "q1", Context: "Paris is in France.", Question: "Where is <Paris>?"},
		}, nil
	}
	return []record.Record{
		{ID: "q1-turk", Context: "Paris is in France. Rome is in Italy.", Question: "Where is <Paris>?"},
	}, nil
}

func setupTest(t *testing.T) (*Handlers, *stubHub) {
	t.Helper()
	database, err := cache.Init(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	logger := zaptest.NewLogger(t)
	renderer, err := NewRenderer(templateSub, "test", logger)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	hub := &stubHub{}
	return &Handlers{
		env: ops.Env{
			Config: config.DefaultConfig(),
			Remote: hub,
			DB:     database,
			Logger: logger,
		},
		renderer: renderer,
	}, hub
}

// --- HandleReport ---

func TestHandleReport_Default(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/report", nil)
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Adversarial SQuAD diff: AddSent",
		"<mark> Rome is in Italy.</mark>",
		"Full Dataset Statistics Report",
		`<option value="AddOneSent">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	if strings.Contains(body, "<Paris>") {
		t.Error("question text must be escaped")
	}
}

func TestHandleReport_JSON(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/report?dataset=AddOneSent&samples=0", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.CompareOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Dataset != "AddOneSent" {
		t.Errorf("dataset = %q, want AddOneSent", out.Dataset)
	}
	if out.Stats.ContextChanged != 1 || out.Stats.IDHasSuffix != 1 {
		t.Errorf("stats = %+v", out.Stats)
	}
	if len(out.Samples) != 0 {
		t.Errorf("len(samples) = %d, want 0", len(out.Samples))
	}
}

func TestHandleReport_HTMXRendersContentOnly(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/report", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("HTMX response should not include the layout")
	}
}

func TestHandleReport_InvalidParams(t *testing.T) {
	h, hub := setupTest(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown variant", "dataset=AddAny"},
		{"negative samples", "samples=-1"},
		{"non-numeric samples", "samples=many"},
		{"negative snippet", "snippet_len=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/report?"+tt.query, nil)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()
			h.HandleReport(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			assertJSONErrorCode(t, rec, "INVALID_REQUEST")
		})
	}
	if hub.calls != 0 {
		t.Errorf("hub calls = %d, want 0 for rejected requests", hub.calls)
	}
}

func TestHandleReport_FetchFailed(t *testing.T) {
	h, hub := setupTest(t)
	hub.fail = errors.NewFetchFailed("rajpurkar/squad", nil)

	req := httptest.NewRequest("GET", "/report", nil)
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Error 502") || !strings.Contains(body, "failed to fetch rajpurkar/squad") {
		t.Errorf("unexpected error page: %s", body)
	}
}

func TestHandleReport_InternalErrorHidesCause(t *testing.T) {
	h, hub := setupTest(t)
	hub.fail = errors.NewInternal(context.DeadlineExceeded)

	req := httptest.NewRequest("GET", "/report", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleReport(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "deadline") {
		t.Errorf("internal cause leaked: %s", body)
	}
	if !strings.Contains(body, `class="error-message"`) {
		t.Errorf("expected HTMX error fragment, got: %s", body)
	}
}

// --- HandleCache / HandleCachePurge ---

func TestHandleCache_ListsEntries(t *testing.T) {
	h, _ := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleCache(rec, httptest.NewRequest("GET", "/cache", nil))
	if !strings.Contains(rec.Body.String(), "No cached collections.") {
		t.Error("expected empty cache message")
	}

	rec = httptest.NewRecorder()
	h.HandleReport(rec, httptest.NewRequest("GET", "/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleCache(rec, httptest.NewRequest("GET", "/cache", nil))
	body := rec.Body.String()
	for _, want := range []string{"rajpurkar/squad", "stanfordnlp/squad_adversarial", "AddSent", "validation"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in cache listing", want)
		}
	}
}

func TestHandleCachePurge(t *testing.T) {
	h, hub := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleReport(rec, httptest.NewRequest("GET", "/report", nil))

	t.Run("requires confirm", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/cache/purge", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.HandleCachePurge(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects bad days", func(t *testing.T) {
		form := url.Values{"confirm": {"true"}, "older_than_days": {"soon"}}
		req := httptest.NewRequest("POST", "/cache/purge", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.HandleCachePurge(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("purges and redirects", func(t *testing.T) {
		form := url.Values{"confirm": {"true"}, "dataset": {"rajpurkar/squad"}}
		req := httptest.NewRequest("POST", "/cache/purge", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.HandleCachePurge(rec, req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.HasPrefix(loc, "/cache?purged=") {
			t.Errorf("Location = %q", loc)
		}
	})

	// The original collection is refetched; the adversarial one is still cached.
	before := hub.calls
	rec = httptest.NewRecorder()
	h.HandleReport(rec, httptest.NewRequest("GET", "/report", nil))
	if hub.calls-before != 1 {
		t.Errorf("hub calls after purge = %d, want 1", hub.calls-before)
	}

	t.Run("htmx fragment", func(t *testing.T) {
		form := url.Values{"confirm": {"true"}}
		req := httptest.NewRequest("POST", "/cache/purge", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		h.HandleCachePurge(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Purged 2 cached collections") {
			t.Errorf("unexpected fragment: %s", rec.Body.String())
		}
	})
}

func TestHandleCache_Disabled(t *testing.T) {
	h, _ := setupTest(t)
	h.env.DB = nil

	req := httptest.NewRequest("GET", "/cache", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleCache(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertJSONErrorCode(t, rec, "INVALID_REQUEST")
}

// --- Server wiring ---

func TestServerRoutes(t *testing.T) {
	h, _ := setupTest(t)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}
	srv := httptest.NewServer(securityHeaders(routes(h, staticSub)))
	defer srv.Close()

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{"GET", "/", http.StatusFound},
		{"GET", "/healthz", http.StatusOK},
		{"GET", "/static/style.css", http.StatusOK},
		{"GET", "/cache", http.StatusOK},
		{"DELETE", "/cache", http.StatusMethodNotAllowed},
		{"GET", "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.wantStatus)
		}
		if resp.Header.Get("X-Frame-Options") != "DENY" {
			t.Errorf("%s %s missing security headers", tt.method, tt.path)
		}
	}
}

func TestNewServer(t *testing.T) {
	srv, err := NewServer(ops.Env{}, "test", "127.0.0.1", 7433)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv.Addr != "127.0.0.1:7433" {
		t.Errorf("Addr = %q", srv.Addr)
	}
}

// --- Helpers ---

func TestFormatCount(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 87599: "87,599", 1234567: "1,234,567", -4200: "-4,200"}
	for in, want := range tests {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(0); got != "1970-01-01 00:00" {
		t.Errorf("formatTime(0) = %q", got)
	}
}

func assertJSONErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v (%s)", err, rec.Body.String())
	}
	if payload.Error.Code != want {
		t.Errorf("code = %q, want %q", payload.Error.Code, want)
	}
}
