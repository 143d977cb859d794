package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/mw"
)

func init() { Register(registerStatic) }

func registerStatic(r chi.Router, d deps.Deps) {
	if d.MetricsHandler != nil {
		r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Handle("/metrics", d.MetricsHandler)
	}
	if d.ReportDir != "" {
		fs := http.StripPrefix("/reports/", http.FileServer(http.Dir(d.ReportDir)))
		r.Get("/reports", http.RedirectHandler("/reports/report.html", http.StatusFound).ServeHTTP)
		r.Get("/reports/*", fs.ServeHTTP)
	}
}
