package mw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/logger"
)

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"checkit.example.com", "checkit.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"a.b.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"badexample.com", "*.example.com", false},
		{"other.com", "checkit.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestAdmitLimit_Refill(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := AdmitLimit(AdmitLimitConfig{
		Burst:     2,
		PerMinute: 60,
		Now:       func() time.Time { return clock },
	}, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		return rec
	}

	if rec := do(); rec.Code != http.StatusNoContent || rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("first request: code=%d remaining=%q", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec := do(); rec.Code != http.StatusNoContent {
		t.Fatalf("second request: code=%d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("third request: code=%d retry-after=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["retry_after"] != 1.0 {
		t.Errorf("429 body = %q (err=%v)", rec.Body.String(), err)
	}

	clock = clock.Add(time.Second)
	if rec := do(); rec.Code != http.StatusNoContent {
		t.Errorf("after refill: code=%d, want 204", rec.Code)
	}
}

func TestAdmitLimit_ClientsAreIndependent(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := AdmitLimit(AdmitLimitConfig{
		Burst:     1,
		PerMinute: 1,
		Now:       func() time.Time { return clock },
	}, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := from("198.51.100.1:5000"); code != http.StatusCreated {
		t.Fatalf("first client: code=%d", code)
	}
	if code := from("198.51.100.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("first client again: code=%d, want 429", code)
	}
	if code := from("198.51.100.2:5000"); code != http.StatusCreated {
		t.Errorf("second client: code=%d, want 201", code)
	}
}

func TestAdmitLimiter_ForgetsClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newAdmitLimiter(AdmitLimitConfig{Burst: 1, PerMinute: 60, MaxClients: 2})

	l.take("a", clock)
	l.take("b", clock.Add(100*time.Millisecond))
	// both buckets are still refilling, so the least recent one goes
	l.take("c", clock.Add(200*time.Millisecond))
	if l.size() != 2 {
		t.Fatalf("size = %d, want 2", l.size())
	}
	if _, ok := l.clients["a"]; ok {
		t.Error("oldest client should have been dropped")
	}

	// a full refill later every tracked bucket is forgettable
	l.take("d", clock.Add(5*time.Second))
	if l.size() != 1 {
		t.Errorf("size = %d, want 1", l.size())
	}
}

func TestAllowOnlyCIDRS_Passthrough(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("code = %d, want passthrough", rec.Code)
	}
}

func TestAllowOnlyCIDRS_TrustProxy(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"203.0.113.0/24"}, true, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("forwarded allowed ip: code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("direct ip: code = %d, want 403", rec.Code)
	}
}
