package domain

import "time"

// SweepSummary counts what happened to each record during one sweep.
type SweepSummary struct {
	ID          int64     `json:"id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Active      int       `json:"active"`
	Admitted    int       `json:"admitted"`
	Duplicates  int       `json:"duplicates"`
	Rejected    int       `json:"rejected"`
	Recovered   int       `json:"recovered"`
	Evicted     int       `json:"evicted"`
	Deferred    int       `json:"deferred"`
	Archived    int       `json:"archived"`
	Skipped     int       `json:"skipped"`
	Up          int       `json:"up"`
	Down        int       `json:"down"`
	Vanished    int       `json:"vanished"`
	StoreErrors int       `json:"store_errors"`
}

// Duration is the wall time of the sweep.
func (s SweepSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Probed is the number of records that received a probe result.
func (s SweepSummary) Probed() int {
	return s.Up + s.Down
}
