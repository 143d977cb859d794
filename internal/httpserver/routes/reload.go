package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/mw"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	guard := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	guard.Post("/api/sweep", handlers.Sweep(d))
	guard.Post("/api/reload", handlers.Reload(d))
}
