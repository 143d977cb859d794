package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Readyz reports ready when the database, and Redis if configured, answer a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Checks: map[string]string{}}

		check := func(name string, ping func(context.Context) error) {
			if ping == nil {
				resp.Checks[name] = "disabled"
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				d.Logger.Warn("readiness check failed", logger.String("component", name), logger.Error(err))
				resp.Ready = false
				resp.Checks[name] = "down"
				return
			}
			resp.Checks[name] = "ok"
		}
		check("database", d.DBPing)
		check("redis", d.RedisPing)

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
