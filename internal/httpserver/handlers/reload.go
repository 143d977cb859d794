package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

// Sweep queues a manual sweep. 429 means one is already queued.
func Sweep(d deps.Deps) http.HandlerFunc {
	return triggerHandler(d, "sweep", func() chan struct{} { return d.SweepTrigger })
}

// Reload queues a manual reload of the sites file.
func Reload(d deps.Deps) http.HandlerFunc {
	return triggerHandler(d, "sites reload", func() chan struct{} { return d.SitesReloadTrigger })
}

type triggerResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

func triggerHandler(d deps.Deps, name string, ch func() chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trigger := ch()
		if trigger == nil {
			writeError(w, http.StatusNotFound, name+" is not enabled")
			return
		}

		select {
		case trigger <- struct{}{}:
			d.Logger.Info("manual "+name+" triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, triggerResponse{Triggered: true, Message: name + " triggered"})
		default:
			d.Logger.Warn(name+" already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, triggerResponse{Message: name + " already pending, please wait"})
		}
	}
}
