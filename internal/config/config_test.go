package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	if cfg.Cooldown != 3*time.Hour {
		t.Errorf("Cooldown = %v, want 3h", cfg.Cooldown)
	}
	if cfg.ProbeMode != "http" {
		t.Errorf("ProbeMode = %q, want http", cfg.ProbeMode)
	}
	if cfg.ArchiveListLimit != 10 {
		t.Errorf("ArchiveListLimit = %d, want 10", cfg.ArchiveListLimit)
	}
	if cfg.EvictAfterFailures != 1 {
		t.Errorf("EvictAfterFailures = %d, want 1", cfg.EvictAfterFailures)
	}
	if cfg.LockEnabled() {
		t.Error("lock should be disabled without CHECKIT_REDIS_ADDR")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkit.env")
	content := "CHECKIT_COOLDOWN=90m\nCHECKIT_PROBE_MODE=ping-tcp\nCHECKIT_SWEEP_CONCURRENCY=3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables that are already set.
	t.Setenv("CHECKIT_SWEEP_CONCURRENCY", "5")
	t.Cleanup(func() {
		_ = os.Unsetenv("CHECKIT_COOLDOWN")
		_ = os.Unsetenv("CHECKIT_PROBE_MODE")
	})

	cfg := Load()

	if cfg.Cooldown != 90*time.Minute {
		t.Errorf("Cooldown = %v, want 90m", cfg.Cooldown)
	}
	if cfg.ProbeMode != "ping-tcp" {
		t.Errorf("ProbeMode = %q, want ping-tcp", cfg.ProbeMode)
	}
	if cfg.SweepConcurrency != 5 {
		t.Errorf("SweepConcurrency = %d, want 5", cfg.SweepConcurrency)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreBackend:         "sqlite",
			DBPath:               "x.db",
			ProbeMode:            "http",
			Cooldown:             time.Hour,
			ProbeTimeout:         time.Second,
			HTTPTimeout:          time.Second,
			DNSTimeout:           time.Second,
			SweepInterval:        time.Minute,
			SweepConcurrency:     1,
			ArchiveListLimit:     10,
			EvictAfterFailures:   1,
			DefaultDurationHours: 24,
			DefaultProtocol:      "https",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "memory backend without path", mutate: func(c *Config) { c.StoreBackend = "memory"; c.DBPath = "" }},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "mongo" }, wantErr: "CHECKIT_STORE_BACKEND"},
		{name: "unknown probe mode", mutate: func(c *Config) { c.ProbeMode = "icmp" }, wantErr: "CHECKIT_PROBE_MODE"},
		{name: "zero concurrency", mutate: func(c *Config) { c.SweepConcurrency = 0 }, wantErr: "CHECKIT_SWEEP_CONCURRENCY"},
		{name: "zero probe timeout", mutate: func(c *Config) { c.ProbeTimeout = 0 }, wantErr: "CHECKIT_PROBE_TIMEOUT"},
		{name: "zero eviction threshold", mutate: func(c *Config) { c.EvictAfterFailures = 0 }, wantErr: "CHECKIT_EVICT_AFTER_FAILURES"},
		{name: "bad default protocol", mutate: func(c *Config) { c.DefaultProtocol = "gopher" }, wantErr: "CHECKIT_DEFAULT_PROTOCOL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "soon", def: time.Second, expected: time.Second},
		{name: "empty uses default", value: "", def: 2 * time.Minute, expected: 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := mustDuration("TEST_DURATION", tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := mustBool("TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` 10.0.0.0/8, "1.2.3.4" ,, '::1'`)
	want := []string{"10.0.0.0/8", "1.2.3.4", "::1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitAndTrim() = %v, want %v", got, want)
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestLoad_ServeSettings(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("CHECKIT_ALLOWED_HOSTS", "checkit.example.com, *.internal")
	t.Setenv("CHECKIT_ALLOWED_CIDRS", "10.0.0.0/8")
	t.Setenv("CHECKIT_ADMIT_BURST", "3")

	cfg := Load()

	if want := []string{"checkit.example.com", "*.internal"}; !reflect.DeepEqual(cfg.AllowedHosts, want) {
		t.Errorf("AllowedHosts = %v, want %v", cfg.AllowedHosts, want)
	}
	if len(cfg.AllowedCIDRS) != 1 {
		t.Errorf("AllowedCIDRS = %v, want one entry", cfg.AllowedCIDRS)
	}
	if cfg.AdmitBurst != 3 || cfg.AdmitRefillPerMin != 30 {
		t.Errorf("admit limits = %d/%d, want 3/30", cfg.AdmitBurst, cfg.AdmitRefillPerMin)
	}
}
