package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// AdmissionRequest asks for a domain to be monitored for DurationHours.
type AdmissionRequest struct {
	Domain        string   `json:"domain" yaml:"domain"`
	Protocol      Protocol `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	DurationHours int      `json:"duration_hours,omitempty" yaml:"duration_hours,omitempty"`
}

// MaxDurationHours caps a monitoring window at ten years, well inside what
// time.Duration can represent.
const MaxDurationHours = 10 * 365 * 24

// Normalize lower-cases the domain and strips any scheme, path or port.
// A scheme present in the input wins over an empty Protocol.
func (r AdmissionRequest) Normalize(defProto Protocol, defDuration int) (AdmissionRequest, error) {
	raw := strings.TrimSpace(r.Domain)
	if raw == "" {
		return r, fmt.Errorf("%w: empty domain", ErrInvalidRequest)
	}

	proto := r.Protocol
	host, scheme, err := splitHost(raw)
	if err != nil {
		return r, fmt.Errorf("%w: bad domain %q: %v", ErrInvalidRequest, r.Domain, err)
	}
	if proto == "" {
		proto = Protocol(scheme)
	}

	p, err := ParseProtocol(string(proto), defProto)
	if err != nil {
		return r, err
	}

	d := r.DurationHours
	if d == 0 {
		d = defDuration
	}
	if d <= 0 || d > MaxDurationHours {
		return r, fmt.Errorf("%w: duration_hours must be in [1, %d], got %d", ErrInvalidRequest, MaxDurationHours, d)
	}

	return AdmissionRequest{Domain: host, Protocol: p, DurationHours: d}, nil
}

// splitHost extracts the host from a bare name, host:port, bracketed IPv6
// literal or full URL. IP literals come back in canonical form without
// brackets.
func splitHost(raw string) (host, scheme string, err error) {
	if addr, perr := netip.ParseAddr(raw); perr == nil {
		return canonicalAddr(addr)
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.User != nil {
		return "", "", errors.New("credentials not allowed")
	}

	host = strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if addr, perr := netip.ParseAddr(host); perr == nil {
		host, _, err = canonicalAddr(addr)
		return host, u.Scheme, err
	}
	if err := checkHostname(host); err != nil {
		return "", "", err
	}
	return host, u.Scheme, nil
}

func canonicalAddr(addr netip.Addr) (string, string, error) {
	if addr.Zone() != "" {
		return "", "", errors.New("zoned addresses are not routable")
	}
	return addr.Unmap().String(), "", nil
}

// checkHostname accepts letters, digits, '-' and '_' in dot-separated labels
// of at most 63 bytes.
func checkHostname(host string) error {
	if host == "" {
		return errors.New("empty host")
	}
	if len(host) > 253 {
		return errors.New("host longer than 253 bytes")
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("bad label %q", label)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("label %q starts or ends with '-'", label)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
				return fmt.Errorf("invalid character %q", c)
			}
		}
	}
	return nil
}

// NewRecord builds a fresh active record for the request.
func (r AdmissionRequest) NewRecord(id string, now time.Time) ScanRecord {
	return ScanRecord{
		ID:            id,
		Domain:        r.Domain,
		Protocol:      r.Protocol,
		DurationHours: r.DurationHours,
		StartTime:     now,
		Status:        StatusUnknown,
	}
}

// Verdict is the Duplicate Registry answer for an admission.
type Verdict int

const (
	VerdictClear Verdict = iota
	VerdictDuplicate
)

func (v Verdict) String() string {
	if v == VerdictDuplicate {
		return "duplicate"
	}
	return "clear"
}
