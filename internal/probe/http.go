package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

// HTTPStrategy issues a GET and treats any status below 400 as up.
type HTTPStrategy struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPStrategy(timeout time.Duration) *HTTPStrategy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStrategy{
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				DisableKeepAlives: true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (s *HTTPStrategy) Name() string { return ModeHTTP }

func (s *HTTPStrategy) Probe(ctx context.Context, t Target) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf("%s://%s", t.Protocol, t.Host)
	if t.Port != 0 && t.Port != t.Protocol.DefaultPort() {
		url = fmt.Sprintf("%s://%s", t.Protocol, net.JoinHostPort(t.Host, strconv.Itoa(t.Port)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Result{Diagnostic: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", "checkit-probe")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Result{Latency: latency, Diagnostic: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close() // Ignore close errors in probe context
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return Result{
		Reachable:  resp.StatusCode < 400,
		Latency:    latency,
		StatusCode: resp.StatusCode,
		Diagnostic: fmt.Sprintf("HTTP %s", resp.Status),
	}
}
