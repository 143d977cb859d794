package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// DuplicateStore appends duplicate admission audit rows.
type DuplicateStore struct {
	db *sqlx.DB
}

func NewDuplicateStore(db *sqlx.DB) *DuplicateStore {
	return &DuplicateStore{db: db}
}

type duplicateRow struct {
	ID                int64  `db:"id"`
	Domain            string `db:"domain"`
	Protocol          string `db:"protocol"`
	DurationHours     int    `db:"duration_hours"`
	AttemptedAt       int64  `db:"attempted_at"`
	ExistingID        string `db:"existing_id"`
	ExistingStartTime int64  `db:"existing_start_time"`
	ExistingTotal     int    `db:"existing_total"`
	ExistingSuccess   int    `db:"existing_success"`
	ExistingFail      int    `db:"existing_fail"`
}

func (s *DuplicateStore) Record(ctx context.Context, e domain.DuplicateEntry) (int64, error) {
	query := `
		INSERT INTO duplicates (domain, protocol, duration_hours, attempted_at, existing_id,
			existing_start_time, existing_total, existing_success, existing_fail)
		VALUES (:domain, :protocol, :duration_hours, :attempted_at, :existing_id,
			:existing_start_time, :existing_total, :existing_success, :existing_fail)`

	row := duplicateRow{
		Domain:            e.Domain,
		Protocol:          string(e.Protocol),
		DurationHours:     e.DurationHours,
		AttemptedAt:       toUnix(e.AttemptedAt),
		ExistingID:        e.ExistingID,
		ExistingStartTime: toUnix(e.ExistingStart),
		ExistingTotal:     e.Existing.Total,
		ExistingSuccess:   e.Existing.Success,
		ExistingFail:      e.Existing.Fail,
	}

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, fmt.Errorf("record duplicate for %s: %w", e.Domain, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("duplicate id: %w", err)
	}
	return id, nil
}

func (s *DuplicateStore) ListDuplicates(ctx context.Context, limit int) ([]domain.DuplicateEntry, error) {
	var rows []duplicateRow
	query := `SELECT id, domain, protocol, duration_hours, attempted_at, existing_id,
			existing_start_time, existing_total, existing_success, existing_fail
		FROM duplicates ORDER BY id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list duplicates: %w", err)
	}

	out := make([]domain.DuplicateEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.DuplicateEntry{
			ID:            r.ID,
			Domain:        r.Domain,
			Protocol:      domain.Protocol(r.Protocol),
			DurationHours: r.DurationHours,
			AttemptedAt:   fromUnix(r.AttemptedAt),
			ExistingID:    r.ExistingID,
			ExistingStart: fromUnix(r.ExistingStartTime),
			Existing:      domain.Counters{Total: r.ExistingTotal, Success: r.ExistingSuccess, Fail: r.ExistingFail},
		})
	}
	return out, nil
}
