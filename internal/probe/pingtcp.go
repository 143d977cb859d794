package probe

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// PingFunc sends a single echo request to host.
type PingFunc func(ctx context.Context, host string, timeout time.Duration) error

// PingTCPStrategy requires both an ICMP echo reply and a TCP connect on the
// protocol port before a target counts as up. Each step gets the full
// timeout, so a probe can take up to twice that.
type PingTCPStrategy struct {
	timeout time.Duration
	ping    PingFunc
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewPingTCPStrategy(timeout time.Duration) *PingTCPStrategy {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PingTCPStrategy{
		timeout: timeout,
		ping:    systemPing,
		dial:    (&net.Dialer{Timeout: timeout}).DialContext,
	}
}

func (s *PingTCPStrategy) Name() string { return ModePingTCP }

func (s *PingTCPStrategy) Probe(ctx context.Context, t Target) Result {
	start := time.Now()
	if err := s.step(ctx, func(ctx context.Context) error { return s.ping(ctx, t.Host, s.timeout) }); err != nil {
		return Result{Latency: time.Since(start), Diagnostic: fmt.Sprintf("ping failed: %v", err)}
	}

	port := t.Port
	if port == 0 {
		port = t.Protocol.DefaultPort()
	}
	addr := net.JoinHostPort(t.Host, strconv.Itoa(port))
	var conn net.Conn
	err := s.step(ctx, func(ctx context.Context) (err error) {
		conn, err = s.dial(ctx, "tcp", addr)
		return err
	})
	latency := time.Since(start)
	if err != nil {
		return Result{Latency: latency, Diagnostic: fmt.Sprintf("tcp %s: %v", addr, err)}
	}
	_ = conn.Close()

	return Result{
		Reachable:  true,
		Latency:    latency,
		Diagnostic: fmt.Sprintf("ping ok, tcp %s open", addr),
	}
}

func (s *PingTCPStrategy) step(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

// systemPing shells out to the platform ping binary to avoid raw sockets.
func systemPing(ctx context.Context, host string, timeout time.Duration) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		ms := int(timeout.Milliseconds())
		if ms < 1 {
			ms = 1000
		}
		cmd = exec.CommandContext(ctx, "ping", "-n", "1", "-w", strconv.Itoa(ms), host)
	} else {
		sec := int(timeout.Seconds())
		if sec < 1 {
			sec = 1
		}
		cmd = exec.CommandContext(ctx, "ping", "-c", "1", "-W", strconv.Itoa(sec), host)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
			msg = msg[i+1:]
		}
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}
