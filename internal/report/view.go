package report

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// RelativeDir is where a record's artifacts live below the details root:
// <yyyy>/<mm>/<dd>/<domain>-<id prefix>, dated by the record's start.
func RelativeDir(rec domain.ScanRecord) string {
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	start := rec.StartTime.UTC()
	return path.Join(start.Format("2006"), start.Format("01"), start.Format("02"), safeName(rec.Domain)+"-"+safeName(id))
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// recordView is the data handed to templates and the JSON summary.
type recordView struct {
	ID               string    `json:"unique_id"`
	Domain           string    `json:"domain"`
	URL              string    `json:"url"`
	Status           string    `json:"status"`
	StartTime        time.Time `json:"start_time"`
	LastScanTime     time.Time `json:"last_scan_time"`
	DurationHours    int       `json:"duration"`
	TotalScans       int       `json:"total_scans"`
	SuccessfulScans  int       `json:"successful_scans"`
	FailedScans      int       `json:"failed_scans"`
	Details          string    `json:"details"`
	Progress         float64   `json:"progress"`
	Uptime           float64   `json:"uptime"`
	Finished         bool      `json:"finished"`
	DetailsDirectory string    `json:"details_directory"`
	GeneratedAt      time.Time `json:"generated_at"`
}

func newRecordView(rec domain.ScanRecord, finished bool, now time.Time) recordView {
	progress := rec.Progress(now)
	if finished {
		progress = 100
	}
	return recordView{
		ID:               rec.ID,
		Domain:           rec.Domain,
		URL:              rec.URL(),
		Status:           string(rec.Status),
		StartTime:        rec.StartTime,
		LastScanTime:     rec.LastScanTime,
		DurationHours:    rec.DurationHours,
		TotalScans:       rec.TotalScans,
		SuccessfulScans:  rec.SuccessfulScans,
		FailedScans:      rec.FailedScans,
		Details:          rec.Details,
		Progress:         round2(progress),
		Uptime:           round2(rec.Uptime()),
		Finished:         finished,
		DetailsDirectory: RelativeDir(rec),
		GeneratedAt:      now,
	}
}

func (v recordView) Downtime() float64 {
	if v.TotalScans == 0 {
		return 0
	}
	return round2(100 - v.Uptime)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

type indexView struct {
	GeneratedAt time.Time
	DetailsBase string // link prefix from the summary page to the details root
	Headline    string
	Active      []recordView
	Completed   []recordView
}

func newIndexView(active []domain.ScanRecord, recent []domain.ArchiveRecord, now time.Time) indexView {
	v := indexView{GeneratedAt: now}

	down := 0
	for _, rec := range active {
		if rec.Status == domain.StatusDown {
			down++
		}
		v.Active = append(v.Active, newRecordView(rec, false, now))
	}
	for _, rec := range recent {
		v.Completed = append(v.Completed, newRecordView(rec.ScanRecord, true, now))
	}

	if len(active) == 0 {
		v.Headline = "No active scans"
	} else {
		v.Headline = fmt.Sprintf("%d out of %d hosts are DOWN", down, len(active))
	}
	return v
}
