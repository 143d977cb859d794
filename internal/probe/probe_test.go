package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

func targetFromURL(t *testing.T, raw string) Target {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url %q: %v", raw, err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("bad port in %q: %v", raw, err)
	}
	return Target{Host: u.Hostname(), Port: port, Protocol: domain.Protocol(u.Scheme)}
}

func TestHTTPStrategy_Probe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ok.URL, http.StatusFound)
	}))
	defer redirect.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	s := NewHTTPStrategy(300 * time.Millisecond)

	tests := []struct {
		name       string
		url        string
		reachable  bool
		statusCode int
	}{
		{"200 is up", ok.URL, true, http.StatusOK},
		{"503 is down", broken.URL, false, http.StatusServiceUnavailable},
		{"redirect to 200 is up", redirect.URL, true, http.StatusOK},
		{"timeout is down", slow.URL, false, 0},
		{"connection refused is down", closedURL, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Probe(context.Background(), targetFromURL(t, tt.url))
			if res.Reachable != tt.reachable {
				t.Errorf("Reachable = %v, want %v (diag=%q)", res.Reachable, tt.reachable, res.Diagnostic)
			}
			if res.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.statusCode)
			}
			if res.Diagnostic == "" {
				t.Error("expected a diagnostic")
			}
		})
	}
}

func TestPingTCPStrategy_Probe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	openPort := ln.Addr().(*net.TCPAddr).Port

	spare, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort := spare.Addr().(*net.TCPAddr).Port
	_ = spare.Close()

	pingOK := func(context.Context, string, time.Duration) error { return nil }
	pingFail := func(context.Context, string, time.Duration) error { return errors.New("100% packet loss") }

	tests := []struct {
		name      string
		ping      PingFunc
		port      int
		reachable bool
		diag      string
	}{
		{"ping and tcp ok", pingOK, openPort, true, "open"},
		{"ping fails", pingFail, openPort, false, "ping failed"},
		{"tcp refused", pingOK, closedPort, false, "tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPingTCPStrategy(500 * time.Millisecond)
			s.ping = tt.ping

			res := s.Probe(context.Background(), Target{Host: "127.0.0.1", Port: tt.port, Protocol: domain.ProtocolHTTP})
			if res.Reachable != tt.reachable {
				t.Errorf("Reachable = %v, want %v (diag=%q)", res.Reachable, tt.reachable, res.Diagnostic)
			}
			if !strings.Contains(res.Diagnostic, tt.diag) {
				t.Errorf("Diagnostic = %q, want it to contain %q", res.Diagnostic, tt.diag)
			}
		})
	}
}

func TestPingTCPStrategy_SlowPingLeavesDialItsOwnBudget(t *testing.T) {
	const timeout = 200 * time.Millisecond

	s := NewPingTCPStrategy(timeout)
	s.ping = func(ctx context.Context, _ string, _ time.Duration) error {
		select {
		case <-time.After(150 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	var remaining time.Duration
	s.dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return nil, errors.New("dial has no deadline")
		}
		remaining = time.Until(deadline)
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}

	res := s.Probe(context.Background(), Target{Host: "192.0.2.1", Protocol: domain.ProtocolHTTPS})
	if !res.Reachable {
		t.Fatalf("Reachable = false (diag=%q)", res.Diagnostic)
	}
	if remaining < timeout/2 {
		t.Errorf("dial got %v of its budget after a slow ping, want close to %v", remaining, timeout)
	}
	if !strings.Contains(res.Diagnostic, "192.0.2.1:443") {
		t.Errorf("Diagnostic = %q", res.Diagnostic)
	}
}

func TestNew(t *testing.T) {
	opts := Options{ProbeTimeout: time.Second, HTTPTimeout: time.Second}

	for mode, want := range map[string]string{"": ModeHTTP, ModeHTTP: ModeHTTP, ModePingTCP: ModePingTCP} {
		s, err := New(mode, opts)
		if err != nil {
			t.Fatalf("New(%q) error: %v", mode, err)
		}
		if s.Name() != want {
			t.Errorf("New(%q).Name() = %q, want %q", mode, s.Name(), want)
		}
	}

	if _, err := New("carrier-pigeon", opts); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestResult_Outcome(t *testing.T) {
	up := Result{Reachable: true, Diagnostic: "HTTP 200 OK"}.Outcome()
	if up.Status != domain.StatusUp || !up.Success() {
		t.Errorf("unexpected outcome %+v", up)
	}
	down := Result{Diagnostic: "timeout"}.Outcome()
	if down.Status != domain.StatusDown || down.Success() || down.Details != "timeout" {
		t.Errorf("unexpected outcome %+v", down)
	}
}
