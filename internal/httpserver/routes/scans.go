package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/mw"
)

func init() { Register(registerScans) }

func registerScans(r chi.Router, d deps.Deps) {
	r.Get("/api/scans", handlers.ListScans(d))
	r.Get("/api/archive", handlers.ListArchive(d))
	r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.AdmitLimit(mw.AdmitLimitConfig{
			Burst:      d.AdmitBurst,
			PerMinute:  d.AdmitRefillPerMin,
			MaxClients: 10000,
			TrustProxy: d.TrustProxy,
			Now:        d.Now,
		}, d.Logger),
	).Post("/api/scans", handlers.Admit(d))
}
