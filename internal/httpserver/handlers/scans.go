package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/intake"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

const (
	maxAdmitBody    = 1 << 16
	maxArchiveLimit = 500
)

type scanView struct {
	domain.ScanRecord
	Progress  float64   `json:"progress"`
	Uptime    float64   `json:"uptime"`
	ExpiresAt time.Time `json:"expires_at"`
}

type archiveView struct {
	domain.ArchiveRecord
	Uptime float64 `json:"uptime"`
}

type admitResponse struct {
	Outcome string    `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	Record  *scanView `json:"record,omitempty"`
}

func newScanView(rec domain.ScanRecord, now time.Time) scanView {
	return scanView{
		ScanRecord: rec,
		Progress:   rec.Progress(now),
		Uptime:     rec.Uptime(),
		ExpiresAt:  rec.ExpiresAt(),
	}
}

// ListScans returns every active record.
func ListScans(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := d.Scans.ListActive(r.Context())
		if err != nil {
			d.Logger.Error("list active scans failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list scans")
			return
		}
		now := d.Now()
		out := make([]scanView, 0, len(active))
		for _, rec := range active {
			out = append(out, newScanView(rec, now))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ListArchive returns the most recently archived records.
func ListArchive(d deps.Deps) http.HandlerFunc {
	def := d.ArchiveLimit
	if def <= 0 {
		def = 10
	}
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", def, maxArchiveLimit)
		recs, err := d.Archive.ListRecent(r.Context(), limit)
		if err != nil {
			d.Logger.Error("list archive failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list archive")
			return
		}
		out := make([]archiveView, 0, len(recs))
		for _, rec := range recs {
			out = append(out, archiveView{ArchiveRecord: rec, Uptime: rec.Uptime()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Admit registers a domain for monitoring.
//
//	201 admitted, 409 duplicate or already monitored, 400 invalid request.
func Admit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.AdmissionRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdmitBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		now := d.Now()
		res, err := d.Admitter.Admit(r.Context(), req, now)
		if err != nil {
			d.Logger.Error("admission failed", logger.String("domain", req.Domain), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "admission failed")
			return
		}

		resp := admitResponse{Outcome: res.Outcome.String(), Reason: res.Reason}
		if res.Record != nil {
			v := newScanView(*res.Record, now)
			resp.Record = &v
		}

		status := http.StatusCreated
		switch res.Outcome {
		case intake.OutcomeDuplicate, intake.OutcomeAlreadyActive:
			status = http.StatusConflict
		case intake.OutcomeRejected:
			status = http.StatusBadRequest
		}
		writeJSON(w, status, resp)
	}
}
