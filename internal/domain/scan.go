package domain

import (
	"fmt"
	"strings"
	"time"
)

// Protocol is the scheme used to build probe URLs.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// ParseProtocol normalizes a user supplied protocol. Empty input yields def.
func ParseProtocol(s string, def Protocol) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "http":
		return ProtocolHTTP, nil
	case "https":
		return ProtocolHTTPS, nil
	default:
		return "", fmt.Errorf("%w: unsupported protocol %q", ErrInvalidRequest, s)
	}
}

// DefaultPort returns the TCP port matching the protocol.
func (p Protocol) DefaultPort() int {
	if p == ProtocolHTTP {
		return 80
	}
	return 443
}

// Status is the outcome of the most recent probe.
type Status string

const (
	StatusUnknown Status = "Unknown"
	StatusUp      Status = "Up"
	StatusDown    Status = "Down"
)

// ScanRecord is one monitored domain while it is active.
type ScanRecord struct {
	ID                 string    `json:"id"`
	Domain             string    `json:"domain"`
	Protocol           Protocol  `json:"protocol"`
	DurationHours      int       `json:"duration_hours"`
	StartTime          time.Time `json:"start_time"`
	LastScanTime       time.Time `json:"last_scan_time,omitempty"`
	TotalScans         int       `json:"total_scans"`
	SuccessfulScans    int       `json:"successful_scans"`
	FailedScans        int       `json:"failed_scans"`
	Status             Status    `json:"status"`
	Details            string    `json:"details,omitempty"`
	Finished           bool      `json:"finished"`
	DetailsPath        string    `json:"details_path,omitempty"`
	GeneratedReport    bool      `json:"generated_report"`
	ValidationFailures int       `json:"validation_failures"`
}

// Window returns the monitoring window length.
func (r ScanRecord) Window() time.Duration {
	return time.Duration(r.DurationHours) * time.Hour
}

// ExpiresAt is the first instant at which the record counts as expired.
func (r ScanRecord) ExpiresAt() time.Time {
	return r.StartTime.Add(r.Window())
}

// IsExpired reports whether the monitoring window has fully elapsed at now.
func (r ScanRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

// URL is the probe target, e.g. "https://example.com".
func (r ScanRecord) URL() string {
	host := r.Domain
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return string(r.Protocol) + "://" + host
}

// Counters returns a snapshot of the probe counters.
func (r ScanRecord) Counters() Counters {
	return Counters{Total: r.TotalScans, Success: r.SuccessfulScans, Fail: r.FailedScans}
}

// Progress is the elapsed share of the monitoring window, capped at 100.
func (r ScanRecord) Progress(now time.Time) float64 {
	window := r.Window()
	if window <= 0 {
		return 100
	}
	elapsed := now.Sub(r.StartTime)
	if elapsed <= 0 {
		return 0
	}
	pct := float64(elapsed) / float64(window) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Uptime returns successful/total as a percentage, 0 when nothing was probed.
func (r ScanRecord) Uptime() float64 {
	return r.Counters().Uptime()
}

// Counters is the (total, success, fail) triple of a record.
type Counters struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

// Consistent reports whether total == success + fail.
func (c Counters) Consistent() bool {
	return c.Total == c.Success+c.Fail && c.Total >= 0 && c.Success >= 0 && c.Fail >= 0
}

func (c Counters) Uptime() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Success) / float64(c.Total) * 100
}

// ArchiveRecord is a ScanRecord whose lifecycle has ended.
// Archived, once true, suppresses any further artifact generation.
type ArchiveRecord struct {
	ScanRecord
	Archived   bool      `json:"archived"`
	ArchivedAt time.Time `json:"archived_at"`
}

// DuplicateEntry is an audit row for a rejected admission.
type DuplicateEntry struct {
	ID            int64     `json:"id"`
	Domain        string    `json:"domain"`
	Protocol      Protocol  `json:"protocol"`
	DurationHours int       `json:"duration_hours"`
	AttemptedAt   time.Time `json:"attempted_at"`
	ExistingID    string    `json:"existing_id"`
	ExistingStart time.Time `json:"existing_start_time"`
	Existing      Counters  `json:"existing_counters"`
}

// ProbeOutcome is what a single probe contributes to a record.
type ProbeOutcome struct {
	Status  Status
	Details string
}

// Success reports whether the outcome counts as a successful scan.
func (o ProbeOutcome) Success() bool {
	return o.Status == StatusUp
}
