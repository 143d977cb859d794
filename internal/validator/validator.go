// Package validator decides whether a monitored domain still resolves.
package validator

import (
	"context"
	"net"
	"time"
)

// LookupFunc resolves a host to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Validator performs a single DNS lookup under a timeout. Any failure,
// transient or not, makes the domain unresolvable.
type Validator struct {
	lookup  LookupFunc
	timeout time.Duration
}

// New returns a Validator backed by the system resolver.
func New(timeout time.Duration) *Validator {
	return NewWithLookup(net.DefaultResolver.LookupHost, timeout)
}

func NewWithLookup(lookup LookupFunc, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Validator{lookup: lookup, timeout: timeout}
}

// IsResolvable reports whether domain resolves to at least one address.
func (v *Validator) IsResolvable(ctx context.Context, domain string) bool {
	if domain == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	addrs, err := v.lookup(ctx, domain)
	return err == nil && len(addrs) > 0
}

// Static is a fixed answer table, handy for dry runs and tests.
type Static map[string]bool

func (s Static) IsResolvable(_ context.Context, domain string) bool {
	return s[domain]
}
