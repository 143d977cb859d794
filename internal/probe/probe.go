// Package probe runs one reachability check against a monitored domain.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

const (
	ModeHTTP    = "http"
	ModePingTCP = "ping-tcp"
)

// Target identifies what to probe.
type Target struct {
	Host     string
	Port     int
	Protocol domain.Protocol
}

// TargetFor builds the probe target for a record.
func TargetFor(r domain.ScanRecord) Target {
	return Target{Host: r.Domain, Port: r.Protocol.DefaultPort(), Protocol: r.Protocol}
}

// Result is the raw outcome of a probe.
type Result struct {
	Reachable  bool
	Latency    time.Duration
	Diagnostic string
	StatusCode int
}

// Outcome maps a probe result onto the record status.
func (r Result) Outcome() domain.ProbeOutcome {
	if r.Reachable {
		return domain.ProbeOutcome{Status: domain.StatusUp, Details: r.Diagnostic}
	}
	return domain.ProbeOutcome{Status: domain.StatusDown, Details: r.Diagnostic}
}

// Strategy is one way of deciding whether a target is up. Implementations
// never return errors: every failure is an unreachable Result.
type Strategy interface {
	Name() string
	Probe(ctx context.Context, t Target) Result
}

// Options holds the timeouts used by the strategies.
type Options struct {
	ProbeTimeout time.Duration // ping and TCP connect
	HTTPTimeout  time.Duration
}

// New returns the strategy registered under mode.
func New(mode string, opts Options) (Strategy, error) {
	switch mode {
	case ModeHTTP, "":
		return NewHTTPStrategy(opts.HTTPTimeout), nil
	case ModePingTCP:
		return NewPingTCPStrategy(opts.ProbeTimeout), nil
	default:
		return nil, fmt.Errorf("unknown probe mode %q", mode)
	}
}

// Func adapts a function into a Strategy.
type Func func(ctx context.Context, t Target) Result

func (f Func) Name() string { return "func" }

func (f Func) Probe(ctx context.Context, t Target) Result {
	return f(ctx, t)
}
