package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/intake"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/store"
)

// Admitter admits one explicit request.
type Admitter interface {
	Admit(ctx context.Context, req domain.AdmissionRequest, now time.Time) (intake.Result, error)
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on write endpoints
	AllowedCIDRS []string         // IPs allowed to access operational endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Scans     store.ScanStore
	Archive   store.ArchiveStore
	Sweeps    store.SweepStore
	DBPing    func(ctx context.Context) error
	RedisPing func(ctx context.Context) error // nil when the sweep lock is disabled
	Admitter  Admitter

	ArchiveLimit       int           // default page size of GET /api/archive
	AdmitBurst         int           // token bucket size for POST /api/scans
	AdmitRefillPerMin  int           // tokens refilled per client IP per minute
	SweepTrigger       chan struct{} // manual sweep trigger
	SitesReloadTrigger chan struct{} // manual sites reload trigger (nil if no sites file)
	MetricsHandler     http.Handler  // nil disables /metrics
	ReportDir          string        // served under /reports/
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
