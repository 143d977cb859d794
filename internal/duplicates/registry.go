// Package duplicates detects re-registrations of a domain that is already
// being monitored and keeps an audit trail of them.
package duplicates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

// ActiveFinder is the read side of the scan store used by the registry.
type ActiveFinder interface {
	FindActiveByDomain(ctx context.Context, domainName string) (*domain.ScanRecord, error)
}

// Recorder persists duplicate entries.
type Recorder interface {
	Record(ctx context.Context, e domain.DuplicateEntry) (int64, error)
}

type Registry struct {
	scans   ActiveFinder
	entries Recorder
	log     logger.Logger
}

func NewRegistry(scans ActiveFinder, entries Recorder, log logger.Logger) *Registry {
	return &Registry{scans: scans, entries: entries, log: log}
}

// CheckAndRecord reports whether req repeats an active record started within
// cooldown of now. On a duplicate it stores a snapshot of the existing record
// and returns it alongside the verdict.
//
// The check and the write are not atomic: two concurrent admissions of the
// same domain can both see Clear. The scan store rejects the second insert.
func (r *Registry) CheckAndRecord(ctx context.Context, req domain.AdmissionRequest, now time.Time, cooldown time.Duration) (domain.Verdict, *domain.ScanRecord, error) {
	existing, err := r.scans.FindActiveByDomain(ctx, req.Domain)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.VerdictClear, nil, nil
	}
	if err != nil {
		return domain.VerdictClear, nil, fmt.Errorf("duplicate check for %s: %w", req.Domain, err)
	}

	if existing.StartTime.Before(now.Add(-cooldown)) {
		return domain.VerdictClear, existing, nil
	}

	entry := domain.DuplicateEntry{
		Domain:        req.Domain,
		Protocol:      req.Protocol,
		DurationHours: req.DurationHours,
		AttemptedAt:   now,
		ExistingID:    existing.ID,
		ExistingStart: existing.StartTime,
		Existing:      existing.Counters(),
	}
	id, err := r.entries.Record(ctx, entry)
	if err != nil {
		return domain.VerdictDuplicate, existing, fmt.Errorf("record duplicate for %s: %w", req.Domain, err)
	}

	r.log.Info("duplicate admission recorded",
		logger.String("domain", req.Domain),
		logger.String("existing_id", existing.ID),
		logger.Int64("entry_id", id),
		logger.Duration("age", now.Sub(existing.StartTime)))

	return domain.VerdictDuplicate, existing, nil
}
