package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// SweepStore records one row per completed sweep.
type SweepStore struct {
	db *sqlx.DB
}

func NewSweepStore(db *sqlx.DB) *SweepStore {
	return &SweepStore{db: db}
}

const sweepColumns = `id, started_at, finished_at, active, admitted, duplicates, rejected,
	recovered, evicted, deferred, archived, skipped, up, down, vanished, store_errors`

type sweepRow struct {
	ID          int64 `db:"id"`
	StartedAt   int64 `db:"started_at"`
	FinishedAt  int64 `db:"finished_at"`
	Active      int   `db:"active"`
	Admitted    int   `db:"admitted"`
	Duplicates  int   `db:"duplicates"`
	Rejected    int   `db:"rejected"`
	Recovered   int   `db:"recovered"`
	Evicted     int   `db:"evicted"`
	Deferred    int   `db:"deferred"`
	Archived    int   `db:"archived"`
	Skipped     int   `db:"skipped"`
	Up          int   `db:"up"`
	Down        int   `db:"down"`
	Vanished    int   `db:"vanished"`
	StoreErrors int   `db:"store_errors"`
}

func (s *SweepStore) RecordSweep(ctx context.Context, sum domain.SweepSummary) (int64, error) {
	query := `
		INSERT INTO sweep_runs (started_at, finished_at, active, admitted, duplicates, rejected,
			recovered, evicted, deferred, archived, skipped, up, down, vanished, store_errors)
		VALUES (:started_at, :finished_at, :active, :admitted, :duplicates, :rejected,
			:recovered, :evicted, :deferred, :archived, :skipped, :up, :down, :vanished, :store_errors)`

	row := sweepRow{
		StartedAt:   toUnix(sum.StartedAt),
		FinishedAt:  toUnix(sum.FinishedAt),
		Active:      sum.Active,
		Admitted:    sum.Admitted,
		Duplicates:  sum.Duplicates,
		Rejected:    sum.Rejected,
		Recovered:   sum.Recovered,
		Evicted:     sum.Evicted,
		Deferred:    sum.Deferred,
		Archived:    sum.Archived,
		Skipped:     sum.Skipped,
		Up:          sum.Up,
		Down:        sum.Down,
		Vanished:    sum.Vanished,
		StoreErrors: sum.StoreErrors,
	}

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, fmt.Errorf("record sweep: %w", err)
	}
	return result.LastInsertId()
}

func (s *SweepStore) ListSweeps(ctx context.Context, limit int) ([]domain.SweepSummary, error) {
	var rows []sweepRow
	query := `SELECT ` + sweepColumns + ` FROM sweep_runs ORDER BY id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}

	out := make([]domain.SweepSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.SweepSummary{
			ID:          r.ID,
			StartedAt:   fromUnix(r.StartedAt),
			FinishedAt:  fromUnix(r.FinishedAt),
			Active:      r.Active,
			Admitted:    r.Admitted,
			Duplicates:  r.Duplicates,
			Rejected:    r.Rejected,
			Recovered:   r.Recovered,
			Evicted:     r.Evicted,
			Deferred:    r.Deferred,
			Archived:    r.Archived,
			Skipped:     r.Skipped,
			Up:          r.Up,
			Down:        r.Down,
			Vanished:    r.Vanished,
			StoreErrors: r.StoreErrors,
		})
	}
	return out, nil
}
