// Package store declares the persistence contracts of the scan lifecycle.
// Implementations live in the sqlite and memory sub-packages.
package store

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// ScanStore holds active records. Mutations are keyed by record id and are
// atomic per record.
type ScanStore interface {
	ListActive(ctx context.Context) ([]domain.ScanRecord, error)
	// ListFinished returns rows left behind by an interrupted archive move.
	ListFinished(ctx context.Context) ([]domain.ScanRecord, error)
	Get(ctx context.Context, id string) (*domain.ScanRecord, error)
	GetCounters(ctx context.Context, domainName string) (domain.Counters, error)
	FindActiveByDomain(ctx context.Context, domainName string) (*domain.ScanRecord, error)

	Insert(ctx context.Context, rec domain.ScanRecord) error
	// ApplyProbeResult returns domain.ErrNotFound when the record is gone or finished.
	ApplyProbeResult(ctx context.Context, id string, outcome domain.ProbeOutcome, now time.Time) error
	MarkFinished(ctx context.Context, id string, now time.Time) error
	Remove(ctx context.Context, id string) error

	RecordValidationFailure(ctx context.Context, id string) (int, error)
	ResetValidationFailures(ctx context.Context, id string) error

	ListReportable(ctx context.Context) ([]domain.ScanRecord, error)
	MarkReportGenerated(ctx context.Context, id, detailsPath string) error
}

// ArchiveStore holds records whose monitoring window ended.
type ArchiveStore interface {
	// Append upserts by id and never clears the archived flag.
	Append(ctx context.Context, rec domain.ScanRecord, now time.Time) error
	Get(ctx context.Context, id string) (*domain.ArchiveRecord, error)
	ListUnarchived(ctx context.Context, limit int) ([]domain.ArchiveRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ArchiveRecord, error)
	MarkArchived(ctx context.Context, id, detailsPath string) error
}

// DuplicateStore is the append-only audit trail of rejected admissions.
type DuplicateStore interface {
	Record(ctx context.Context, e domain.DuplicateEntry) (int64, error)
	ListDuplicates(ctx context.Context, limit int) ([]domain.DuplicateEntry, error)
}

// SweepStore keeps the history of sweep summaries.
type SweepStore interface {
	RecordSweep(ctx context.Context, s domain.SweepSummary) (int64, error)
	ListSweeps(ctx context.Context, limit int) ([]domain.SweepSummary, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Scans      ScanStore
	Archive    ArchiveStore
	Duplicates DuplicateStore
	Sweeps     SweepStore
	Ping       func(ctx context.Context) error
	Close      func() error
}
