package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// ScanStore handles the active scan set.
type ScanStore struct {
	db *sqlx.DB
}

func NewScanStore(db *sqlx.DB) *ScanStore {
	return &ScanStore{db: db}
}

// ListActive returns non-finished records in a stable order.
func (s *ScanStore) ListActive(ctx context.Context) ([]domain.ScanRecord, error) {
	var rows []scanRow
	query := `SELECT ` + scanColumns + ` FROM scans WHERE finished = 0 ORDER BY start_time, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active scans: %w", err)
	}
	return scanRecords(rows), nil
}

func (s *ScanStore) ListFinished(ctx context.Context) ([]domain.ScanRecord, error) {
	var rows []scanRow
	query := `SELECT ` + scanColumns + ` FROM scans WHERE finished = 1 ORDER BY start_time, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list finished scans: %w", err)
	}
	return scanRecords(rows), nil
}

func (s *ScanStore) Get(ctx context.Context, id string) (*domain.ScanRecord, error) {
	var row scanRow
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get scan %s: %w", id, err)
	}
	rec := row.toDomain()
	return &rec, nil
}

func (s *ScanStore) GetCounters(ctx context.Context, domainName string) (domain.Counters, error) {
	var c struct {
		Total   int `db:"total_scans"`
		Success int `db:"successful_scans"`
		Fail    int `db:"failed_scans"`
	}
	query := `SELECT total_scans, successful_scans, failed_scans FROM scans WHERE domain = ? AND finished = 0`
	if err := s.db.GetContext(ctx, &c, query, domainName); err != nil {
		if isNoRows(err) {
			return domain.Counters{}, domain.ErrNotFound
		}
		return domain.Counters{}, fmt.Errorf("get counters for %s: %w", domainName, err)
	}
	return domain.Counters{Total: c.Total, Success: c.Success, Fail: c.Fail}, nil
}

func (s *ScanStore) FindActiveByDomain(ctx context.Context, domainName string) (*domain.ScanRecord, error) {
	var row scanRow
	query := `SELECT ` + scanColumns + ` FROM scans WHERE domain = ? AND finished = 0`
	if err := s.db.GetContext(ctx, &row, query, domainName); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find active scan for %s: %w", domainName, err)
	}
	rec := row.toDomain()
	return &rec, nil
}

// Insert creates a new active record.
func (s *ScanStore) Insert(ctx context.Context, rec domain.ScanRecord) error {
	query := `INSERT INTO scans (` + scanColumns + `) VALUES (
		:id, :domain, :protocol, :duration_hours, :start_time, :last_scan_time,
		:total_scans, :successful_scans, :failed_scans, :status, :details, :finished,
		:details_path, :generated_report, :validation_failures)`

	if _, err := s.db.NamedExecContext(ctx, query, newScanRow(rec)); err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "scans.id"):
			return fmt.Errorf("insert scan %s: %w", rec.ID, domain.ErrDuplicateID)
		case strings.Contains(msg, "scans.domain"):
			return fmt.Errorf("insert scan for %s: %w", rec.Domain, domain.ErrAlreadyActive)
		}
		return fmt.Errorf("insert scan %s: %w", rec.ID, err)
	}
	return nil
}

// ApplyProbeResult records one probe in a single statement so the counter
// invariant holds under concurrent writers. New data invalidates the
// record's generated report.
func (s *ScanStore) ApplyProbeResult(ctx context.Context, id string, outcome domain.ProbeOutcome, now time.Time) error {
	success, fail := 0, 1
	if outcome.Success() {
		success, fail = 1, 0
	}

	query := `
		UPDATE scans
		SET total_scans = total_scans + 1,
			successful_scans = successful_scans + ?,
			failed_scans = failed_scans + ?,
			status = ?, details = ?, last_scan_time = ?,
			generated_report = 0, validation_failures = 0
		WHERE id = ? AND finished = 0`

	result, err := s.db.ExecContext(ctx, query, success, fail, string(outcome.Status), outcome.Details, toUnix(now), id)
	if err = execRequireRows(result, err, domain.ErrNotFound); err != nil {
		return fmt.Errorf("apply probe result to %s: %w", id, err)
	}
	return nil
}

// MarkFinished flags the record as finished. Calling it again keeps the
// first finish time.
func (s *ScanStore) MarkFinished(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE scans
		SET last_scan_time = CASE WHEN finished = 1 THEN last_scan_time ELSE ? END,
			finished = 1
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, toUnix(now), id)
	if err = execRequireRows(result, err, domain.ErrNotFound); err != nil {
		return fmt.Errorf("mark scan %s finished: %w", id, err)
	}
	return nil
}

// Remove deletes the record. Removing a missing record is not an error.
func (s *ScanStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove scan %s: %w", id, err)
	}
	return nil
}

func (s *ScanStore) RecordValidationFailure(ctx context.Context, id string) (int, error) {
	var count int
	query := `
		UPDATE scans SET validation_failures = validation_failures + 1
		WHERE id = ? AND finished = 0
		RETURNING validation_failures`

	if err := s.db.QueryRowxContext(ctx, query, id).Scan(&count); err != nil {
		if isNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("record validation failure for %s: %w", id, err)
	}
	return count, nil
}

func (s *ScanStore) ResetValidationFailures(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE scans SET validation_failures = 0 WHERE id = ? AND finished = 0`, id); err != nil {
		return fmt.Errorf("reset validation failures for %s: %w", id, err)
	}
	return nil
}

// ListReportable returns active records without a current artifact, most
// recently scanned first.
func (s *ScanStore) ListReportable(ctx context.Context) ([]domain.ScanRecord, error) {
	var rows []scanRow
	query := `SELECT ` + scanColumns + ` FROM scans
		WHERE finished = 0 AND generated_report = 0
		ORDER BY last_scan_time DESC, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list reportable scans: %w", err)
	}
	return scanRecords(rows), nil
}

func (s *ScanStore) MarkReportGenerated(ctx context.Context, id, detailsPath string) error {
	query := `UPDATE scans SET generated_report = 1, details_path = ? WHERE id = ? AND finished = 0`

	result, err := s.db.ExecContext(ctx, query, detailsPath, id)
	if err = execRequireRows(result, err, domain.ErrNotFound); err != nil {
		return fmt.Errorf("mark report generated for %s: %w", id, err)
	}
	return nil
}
