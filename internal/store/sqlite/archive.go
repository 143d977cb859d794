package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// ArchiveStore handles records whose monitoring window ended.
type ArchiveStore struct {
	db *sqlx.DB
}

func NewArchiveStore(db *sqlx.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// Append copies rec into the archive. Re-appending the same id overwrites the
// data columns but keeps archived, archived_at and any recorded details path.
func (s *ArchiveStore) Append(ctx context.Context, rec domain.ScanRecord, now time.Time) error {
	row := archiveRow{scanRow: newScanRow(rec), ArchivedAt: toUnix(now)}
	row.Finished = true

	query := `INSERT INTO archive (` + archiveColumns + `) VALUES (
		:id, :domain, :protocol, :duration_hours, :start_time, :last_scan_time,
		:total_scans, :successful_scans, :failed_scans, :status, :details, :finished,
		:details_path, :generated_report, :validation_failures, 0, :archived_at)
	ON CONFLICT(id) DO UPDATE SET
		domain = excluded.domain,
		protocol = excluded.protocol,
		duration_hours = excluded.duration_hours,
		start_time = excluded.start_time,
		last_scan_time = excluded.last_scan_time,
		total_scans = excluded.total_scans,
		successful_scans = excluded.successful_scans,
		failed_scans = excluded.failed_scans,
		status = excluded.status,
		details = excluded.details,
		finished = 1,
		details_path = CASE WHEN archive.details_path = '' THEN excluded.details_path ELSE archive.details_path END`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("append archive %s: %w", rec.ID, err)
	}
	return nil
}

func (s *ArchiveStore) Get(ctx context.Context, id string) (*domain.ArchiveRecord, error) {
	var row archiveRow
	query := `SELECT ` + archiveColumns + ` FROM archive WHERE id = ?`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get archive %s: %w", id, err)
	}
	rec := row.toDomain()
	return &rec, nil
}

// ListUnarchived is the reporting feed: records without a durable artifact,
// most recently scanned first, capped at limit.
func (s *ArchiveStore) ListUnarchived(ctx context.Context, limit int) ([]domain.ArchiveRecord, error) {
	var rows []archiveRow
	query := `SELECT ` + archiveColumns + ` FROM archive
		WHERE archived = 0
		ORDER BY last_scan_time DESC, id
		LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list unarchived: %w", err)
	}
	return archiveRecords(rows), nil
}

func (s *ArchiveStore) ListRecent(ctx context.Context, limit int) ([]domain.ArchiveRecord, error) {
	var rows []archiveRow
	query := `SELECT ` + archiveColumns + ` FROM archive ORDER BY archived_at DESC, id LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list recent archive: %w", err)
	}
	return archiveRecords(rows), nil
}

// MarkArchived sets the permanent "artifact exists" flag.
func (s *ArchiveStore) MarkArchived(ctx context.Context, id, detailsPath string) error {
	query := `
		UPDATE archive
		SET archived = 1,
			details_path = CASE WHEN ? = '' THEN details_path ELSE ? END
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, detailsPath, detailsPath, id)
	if err = execRequireRows(result, err, domain.ErrNotFound); err != nil {
		return fmt.Errorf("mark archived %s: %w", id, err)
	}
	return nil
}
