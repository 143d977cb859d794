package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

type Config struct {
	// Storage
	DBPath       string // sqlite file, ex: "data/checkit.db"
	StoreBackend string // "sqlite" | "memory"

	// Logging
	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotated log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Lifecycle
	Cooldown           time.Duration // duplicate admission window (default: 3h)
	ProbeMode          string        // "http" | "ping-tcp"
	ProbeTimeout       time.Duration // ping/TCP timeout (default: 3s)
	HTTPTimeout        time.Duration // HTTP GET timeout (default: 10s)
	DNSTimeout         time.Duration // resolver timeout (default: 2s)
	SweepConcurrency   int           // parallel records per sweep
	ArchiveListLimit   int           // reporting feed size for unarchived records
	EvictAfterFailures int           // consecutive DNS failures before eviction (1 = immediate)

	// Intake
	SitesFile            string // optional YAML list of domains admitted on every sweep
	DefaultDurationHours int
	DefaultProtocol      string

	// Reports
	ReportDir     string
	DetailsDir    string
	PublishRemote string // git remote, empty = publishing disabled
	PublishBranch string
	PublishToken  string
	PublishAuthor string

	// Redis (optional, sweep lock)
	RedisAddr         string        // ex: "localhost:6379", empty = lock disabled
	RedisUser         string        // optional
	RedisPassword     string        // optional
	RedisDB           int           // Redis DB number
	RedisTimeout      time.Duration // per dial, command and PING (ex: 2s)
	RedisDialAttempts int           // PINGs tried before a sweep gives up on the lock
	RedisRetryBackoff time.Duration // pause between dial attempts
	SweepLockTTL      time.Duration

	// Serve mode
	ListenPort          string        // ex: ":8080"
	ShutdownTimeout     time.Duration // ex: 5s
	AllowedCIDRS        []string      // optional, restrict operational endpoints (e.g. "10.0.0.0/8, 1.2.3.4")
	AllowedHosts        []string      // optional, Host headers accepted on write endpoints ("*.example.com" allowed)
	TrustProxy          bool          // true => trust X-Forwarded-For headers
	SweepInterval       time.Duration // serve-mode sweep cadence
	SitesReloadInterval time.Duration
	AdmitBurst          int // POST /api/scans token bucket size per client IP
	AdmitRefillPerMin   int

	// Metrics
	PushgatewayURL string // optional, batch sweeps push here when set
}

// Load reads the configuration from the environment. .env files are applied
// first and never override variables already set in the process.
func Load() *Config {
	if err := LoadEnvFiles(); err != nil {
		log.Printf("[WARN] %v", err)
	}

	cfg := &Config{
		DBPath:       getenv("CHECKIT_DB_PATH", "data/checkit.db"),
		StoreBackend: getenv("CHECKIT_STORE_BACKEND", "sqlite"),

		LogLevel:      getenv("CHECKIT_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("CHECKIT_PRETTY_LOG", true),
		LogFile:       getenv("CHECKIT_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("CHECKIT_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getenvInt("CHECKIT_LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getenvInt("CHECKIT_LOG_MAX_AGE_DAYS", 28),

		Cooldown:           mustDuration("CHECKIT_COOLDOWN", 3*time.Hour),
		ProbeMode:          getenv("CHECKIT_PROBE_MODE", "http"),
		ProbeTimeout:       mustDuration("CHECKIT_PROBE_TIMEOUT", 3*time.Second),
		HTTPTimeout:        mustDuration("CHECKIT_HTTP_TIMEOUT", 10*time.Second),
		DNSTimeout:         mustDuration("CHECKIT_DNS_TIMEOUT", 2*time.Second),
		SweepConcurrency:   getenvInt("CHECKIT_SWEEP_CONCURRENCY", 8),
		ArchiveListLimit:   getenvInt("CHECKIT_ARCHIVE_LIST_LIMIT", 10),
		EvictAfterFailures: getenvInt("CHECKIT_EVICT_AFTER_FAILURES", 1),

		SitesFile:            getenv("CHECKIT_SITES_FILE", ""),
		DefaultDurationHours: getenvInt("CHECKIT_DEFAULT_DURATION_HOURS", 24),
		DefaultProtocol:      getenv("CHECKIT_DEFAULT_PROTOCOL", "https"),

		ReportDir:     getenv("CHECKIT_REPORT_DIR", "public"),
		DetailsDir:    getenv("CHECKIT_DETAILS_DIR", "public/details"),
		PublishRemote: getenv("CHECKIT_PUBLISH_REMOTE", ""),
		PublishBranch: getenv("CHECKIT_PUBLISH_BRANCH", "master"),
		PublishToken:  getenv("CHECKIT_PUBLISH_TOKEN", ""),
		PublishAuthor: getenv("CHECKIT_PUBLISH_AUTHOR", "checkit"),

		RedisAddr:         getenv("CHECKIT_REDIS_ADDR", ""),
		RedisUser:         getenv("CHECKIT_REDIS_USERNAME", ""),
		RedisPassword:     getenv("CHECKIT_REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("CHECKIT_REDIS_DB", 0),
		RedisTimeout:      mustDuration("CHECKIT_REDIS_TIMEOUT", 2*time.Second),
		RedisDialAttempts: getenvInt("CHECKIT_REDIS_DIAL_ATTEMPTS", 3),
		RedisRetryBackoff: mustDuration("CHECKIT_REDIS_RETRY_BACKOFF", 500*time.Millisecond),
		SweepLockTTL:      mustDuration("CHECKIT_SWEEP_LOCK_TTL", 15*time.Minute),

		ListenPort:          getenv("CHECKIT_LISTEN_PORT", ":8080"),
		ShutdownTimeout:     mustDuration("CHECKIT_SHUTDOWN_TIMEOUT", 5*time.Second),
		AllowedCIDRS:        parseAllowedIPs(getenv("CHECKIT_ALLOWED_CIDRS", "")),
		AllowedHosts:        splitAndTrim(getenv("CHECKIT_ALLOWED_HOSTS", "")),
		TrustProxy:          mustBool("CHECKIT_TRUST_PROXY", false),
		SweepInterval:       mustDuration("CHECKIT_SWEEP_INTERVAL", 10*time.Minute),
		SitesReloadInterval: mustDuration("CHECKIT_SITES_RELOAD_INTERVAL", time.Hour),
		AdmitBurst:          getenvInt("CHECKIT_ADMIT_BURST", 10),
		AdmitRefillPerMin:   getenvInt("CHECKIT_ADMIT_REFILL_PER_MIN", 30),

		PushgatewayURL: getenv("CHECKIT_PUSHGATEWAY_URL", ""),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.PublishToken = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate rejects values the lifecycle engine cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.StoreBackend != "sqlite" && c.StoreBackend != "memory" {
		errs = append(errs, fmt.Errorf("CHECKIT_STORE_BACKEND must be sqlite or memory, got %q", c.StoreBackend))
	}
	if c.StoreBackend == "sqlite" && c.DBPath == "" {
		errs = append(errs, errors.New("CHECKIT_DB_PATH is required for the sqlite backend"))
	}
	if c.ProbeMode != "http" && c.ProbeMode != "ping-tcp" {
		errs = append(errs, fmt.Errorf("CHECKIT_PROBE_MODE must be http or ping-tcp, got %q", c.ProbeMode))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("CHECKIT_COOLDOWN must be >= 0, got %v", c.Cooldown))
	}
	for name, d := range map[string]time.Duration{
		"CHECKIT_PROBE_TIMEOUT":  c.ProbeTimeout,
		"CHECKIT_HTTP_TIMEOUT":   c.HTTPTimeout,
		"CHECKIT_DNS_TIMEOUT":    c.DNSTimeout,
		"CHECKIT_SWEEP_INTERVAL": c.SweepInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if c.SweepConcurrency < 1 {
		errs = append(errs, fmt.Errorf("CHECKIT_SWEEP_CONCURRENCY must be >= 1, got %d", c.SweepConcurrency))
	}
	if c.ArchiveListLimit < 1 {
		errs = append(errs, fmt.Errorf("CHECKIT_ARCHIVE_LIST_LIMIT must be >= 1, got %d", c.ArchiveListLimit))
	}
	if c.EvictAfterFailures < 1 {
		errs = append(errs, fmt.Errorf("CHECKIT_EVICT_AFTER_FAILURES must be >= 1, got %d", c.EvictAfterFailures))
	}
	if c.DefaultDurationHours < 1 || c.DefaultDurationHours > domain.MaxDurationHours {
		errs = append(errs, fmt.Errorf("CHECKIT_DEFAULT_DURATION_HOURS must be in [1, %d], got %d", domain.MaxDurationHours, c.DefaultDurationHours))
	}
	if c.LockEnabled() && c.RedisDialAttempts < 1 {
		errs = append(errs, fmt.Errorf("CHECKIT_REDIS_DIAL_ATTEMPTS must be >= 1, got %d", c.RedisDialAttempts))
	}
	if c.DefaultProtocol != "http" && c.DefaultProtocol != "https" {
		errs = append(errs, fmt.Errorf("CHECKIT_DEFAULT_PROTOCOL must be http or https, got %q", c.DefaultProtocol))
	}
	return errors.Join(errs...)
}

// LockEnabled reports whether a Redis sweep lock is configured.
func (c *Config) LockEnabled() bool { return c.RedisAddr != "" }

// LoadEnvFiles loads .env files in priority order:
// 1. ENV_FILE environment variable (if set, loads only this file)
// 2. .env.local (if exists, overrides .env)
// 3. .env (default)
// Missing files are ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
