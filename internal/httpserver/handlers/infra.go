package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	ActiveRecords *int   `json:"active_records,omitempty"`
	LastSweep     string `json:"last_sweep,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra summarises the state of every backing component.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"database": checkDatabase(ctx, d),
			"redis":    checkRedis(ctx, d),
			"sweeper":  checkSweeper(ctx, d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if db, ok := components["database"]; ok && !db.OK {
		return "critical"
	}
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "degraded"
	}
	if sweeper, ok := components["sweeper"]; ok && !sweeper.OK {
		return "degraded"
	}
	return "operational"
}

func checkDatabase(ctx context.Context, d deps.Deps) componentStatus {
	if d.DBPing != nil {
		if err := d.DBPing(ctx); err != nil {
			return componentStatus{OK: false, Error: err.Error()}
		}
	}
	active, err := d.Scans.ListActive(ctx)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	n := len(active)
	return componentStatus{OK: true, ActiveRecords: &n}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisPing == nil {
		return componentStatus{
			OK:     true,
			Mode:   "local",
			Impact: "sweep-lock-disabled",
		}
	}
	if err := d.RedisPing(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "sweeps-skipped",
			Error:  "timeout",
		}
	}
	return componentStatus{OK: true, Mode: "distributed", Impact: "sweep-lock-enabled"}
}

func checkSweeper(ctx context.Context, d deps.Deps) componentStatus {
	if d.Sweeps == nil {
		return componentStatus{OK: true, LastSweep: "never"}
	}
	runs, err := d.Sweeps.ListSweeps(ctx, 1)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	if len(runs) == 0 {
		return componentStatus{OK: true, LastSweep: "never"}
	}
	last := runs[0]
	return componentStatus{
		OK:        last.StoreErrors == 0,
		LastSweep: last.FinishedAt.Format(time.RFC3339),
	}
}
