package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"abyssal/internal/analysis"
	"abyssal/internal/engine"
	"abyssal/internal/protocol"
	"abyssal/internal/respond"
	"abyssal/internal/session"
	"abyssal/internal/tools"
)

func newTestServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()
	lib, err := respond.NewLibrary()
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	reg := tools.DefaultRegistry()
	eng := engine.New(analysis.NewStaticAnalyzer(), lib, reg)
	sessions := session.NewRegistry()
	return New(Config{Addr: ":0"}, eng, sessions, reg), sessions
}

// parseSSE decodes every data: frame in an SSE body.
func parseSSE(t *testing.T, body string) []protocol.Envelope {
	t.Helper()
	var events []protocol.Envelope
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if !strings.HasPrefix(frame, "data: ") {
			continue
		}
		var env protocol.Envelope
		if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &env); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		events = append(events, env)
	}
	return events
}

func TestChatStreamsEnvelopes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"What is it like down there?"}`))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) < 4 {
		t.Fatalf("only %d events", len(events))
	}
	for i, env := range events {
		if env.SequenceNumber != i {
			t.Errorf("event %d sequence %d", i, env.SequenceNumber)
		}
	}
	last := events[len(events)-1]
	if last.Type != protocol.EventResponseComplete {
		t.Errorf("last event %s", last.Type)
	}
}

func TestChatValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"no message", `{"session_id":"x"}`},
		{"oversized", `{"message":"` + strings.Repeat("a", maxMessageLen+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			srv.Handler().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", rec.Code)
			}
			// Rejected before any stream opens: body is a JSON error, not
			// SSE frames.
			if strings.Contains(rec.Body.String(), "data: ") {
				t.Error("malformed request opened a stream")
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d", rec.Code)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/"+created.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status %d", rec.Code)
	}
}

func TestInterruptEndpoint(t *testing.T) {
	srv, sessions := newTestServer(t)
	id, entry := sessions.Create()

	rec := httptest.NewRecorder()
	body := `{"session_id":"` + id + `","stream_id":3,"revealed_len":12}`
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interrupt", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if !entry.Tracker.WasInterrupted(3) {
		t.Error("interrupt not recorded")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/interrupt", strings.NewReader(`{"stream_id":1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing session_id status %d", rec.Code)
	}
}

func TestToolsDiscovery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var listing struct {
		Tools []tools.Tool `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Tools) < 4 {
		t.Fatalf("%d tools listed", len(listing.Tools))
	}
	for _, tool := range listing.Tools {
		if tool.Name == "" {
			t.Error("tool missing name")
		}
	}
}

func TestToolEndpoint(t *testing.T) {
	srv, sessions := newTestServer(t)
	id, entry := sessions.Create()

	rec := httptest.NewRecorder()
	body := `{"session_id":"` + id + `","tool":"ping_sonar"}`
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tool", strings.NewReader(body)))

	events := parseSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].Type != protocol.EventResponseComplete {
		t.Fatalf("tool path events: %d", len(events))
	}
	if entry.State.Confidence != 53 {
		t.Errorf("confidence %d, want 53", entry.State.Confidence)
	}
}

func TestRateLimiter(t *testing.T) {
	if !NewLimiter(0, 0).Allow() {
		t.Error("unconfigured limiter must allow")
	}

	l := NewLimiter(1, 1)
	if !l.Allow() {
		t.Fatal("first request should pass")
	}
	if l.Allow() {
		t.Error("burst of 1 should reject the immediate second request")
	}
}
