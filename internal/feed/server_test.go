package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmdbeacon/cmdbeacon/internal/journal"
	"github.com/cmdbeacon/cmdbeacon/internal/session"
)

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(inner).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'",
	}

	for header, expected := range want {
		if got := rec.Header().Get(header); got != expected {
			t.Errorf("header %s = %q, want %q", header, got, expected)
		}
	}
}

func newTestServer(t *testing.T, records journal.Source) (http.Handler, *session.Store) {
	t.Helper()
	store := session.NewStore()
	store.Update(session.EventOpen, &session.Info{ID: "a", Remote: "10.0.0.7:50123", Phase: session.Open})
	state := fixedState{Connected: 3, Host: "10.0.0.2", Port: 12345}
	b := NewBroadcaster(store, state, time.Hour, time.Hour)
	t.Cleanup(b.Stop)
	return NewServer(store, state, b, records).Router(), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPISessions(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := get(t, h, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var infos []session.Info
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Remote != "10.0.0.7:50123" {
		t.Errorf("sessions = %+v", infos)
	}

	if rec := get(t, h, "/api/sessions/a"); rec.Code != http.StatusOK {
		t.Errorf("GET /api/sessions/a = %d, want 200", rec.Code)
	}
	if rec := get(t, h, "/api/sessions/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/sessions/missing = %d, want 404", rec.Code)
	}
}

func TestAPIState(t *testing.T) {
	h, _ := newTestServer(t, nil)

	var got struct {
		Connected int    `json:"connected"`
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Active    int    `json:"active"`
	}
	if err := json.NewDecoder(get(t, h, "/api/state").Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Connected != 3 || got.Host != "10.0.0.2" || got.Port != 12345 || got.Active != 1 {
		t.Errorf("state = %+v", got)
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/sessions = %d, want 405", rec.Code)
	}
}

func journalSource(t *testing.T) journal.Source {
	t.Helper()
	mem := journal.NewMemory(0)
	ctx := context.Background()
	mem.Write(ctx, journal.Record{ID: "1", Sender: journal.Client, Peer: "10.0.0.7:50123", Content: "<b>TIME</b>"})
	mem.Write(ctx, journal.Record{ID: "2", Sender: journal.Server, Peer: "10.0.0.7:50123", Content: "9:26:54"})
	return mem
}

func TestAPIJournal(t *testing.T) {
	h, _ := newTestServer(t, journalSource(t))

	var all []journal.Record
	if err := json.NewDecoder(get(t, h, "/api/journal").Body).Decode(&all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("journal = %d records, want 2", len(all))
	}

	var servers []journal.Record
	if err := json.NewDecoder(get(t, h, "/api/journal?sender=server").Body).Decode(&servers); err != nil {
		t.Fatal(err)
	}
	if len(servers) != 1 || servers[0].Content != "9:26:54" {
		t.Errorf("sender=server = %+v", servers)
	}

	if rec := get(t, h, "/api/journal?sender=router"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown sender status = %d, want 400", rec.Code)
	}
}

func TestJournalUnavailable(t *testing.T) {
	h, _ := newTestServer(t, nil)
	for _, path := range []string{"/api/journal", "/report"} {
		if rec := get(t, h, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s without a journal = %d, want 503", path, rec.Code)
		}
	}
}

func TestReport(t *testing.T) {
	h, _ := newTestServer(t, journalSource(t))

	rec := get(t, h, "/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "style-src 'unsafe-inline'") {
		t.Errorf("report CSP = %q, inline styles would be blocked", csp)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<b>TIME</b>") {
		t.Error("record content should be escaped")
	}
	if !strings.Contains(body, "9:26:54") {
		t.Error("report missing server record")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"http://feed.example:8090", true},
		{"http://evil.example", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://feed.example:8090/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
