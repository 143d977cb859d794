// Package memory is an in-process implementation of the lifecycle stores.
// It backs ephemeral runs (CHECKIT_STORE_BACKEND=memory) and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/store"
)

// FaultFunc lets callers inject write failures. op is the store operation
// name (e.g. "ApplyProbeResult") and id the record id.
type FaultFunc func(op, id string) error

// Index holds all tables behind a single lock.
type Index struct {
	mu         sync.RWMutex
	scans      map[string]domain.ScanRecord    // ID -> record
	archive    map[string]domain.ArchiveRecord // ID -> record
	duplicates []domain.DuplicateEntry
	sweeps     []domain.SweepSummary
	fault      FaultFunc
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		scans:   make(map[string]domain.ScanRecord),
		archive: make(map[string]domain.ArchiveRecord),
	}
}

// New returns every store over a fresh index.
func New() (store.Stores, *Index) {
	idx := NewIndex()
	return Stores(idx), idx
}

// Stores wraps idx in the store interfaces.
func Stores(idx *Index) store.Stores {
	return store.Stores{
		Scans:      &ScanStore{idx: idx},
		Archive:    &ArchiveStore{idx: idx},
		Duplicates: &DuplicateStore{idx: idx},
		Sweeps:     &SweepStore{idx: idx},
		Ping:       func(context.Context) error { return nil },
		Close:      func() error { return nil },
	}
}

// SetFault installs (or clears, with nil) a write fault hook.
func (idx *Index) SetFault(f FaultFunc) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.fault = f
}

// Seed stores rec as-is, bypassing admission checks.
func (idx *Index) Seed(rec domain.ScanRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.scans[rec.ID] = rec
}

// Count returns the number of rows in the scans table.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.scans)
}

func (idx *Index) injected(op, id string) error {
	if idx.fault == nil {
		return nil
	}
	return idx.fault(op, id)
}

// ─────────────────────────────────────────────────────────────────
// Scans
// ─────────────────────────────────────────────────────────────────

type ScanStore struct {
	idx *Index
}

func (s *ScanStore) list(match func(domain.ScanRecord) bool, less func(a, b domain.ScanRecord) bool) []domain.ScanRecord {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	out := make([]domain.ScanRecord, 0, len(s.idx.scans))
	for _, r := range s.idx.scans {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byStart(a, b domain.ScanRecord) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}

func (s *ScanStore) ListActive(ctx context.Context) ([]domain.ScanRecord, error) {
	return s.list(func(r domain.ScanRecord) bool { return !r.Finished }, byStart), nil
}

func (s *ScanStore) ListFinished(ctx context.Context) ([]domain.ScanRecord, error) {
	return s.list(func(r domain.ScanRecord) bool { return r.Finished }, byStart), nil
}

func (s *ScanStore) Get(ctx context.Context, id string) (*domain.ScanRecord, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	r, ok := s.idx.scans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (s *ScanStore) findActiveLocked(domainName string) (domain.ScanRecord, bool) {
	for _, r := range s.idx.scans {
		if r.Domain == domainName && !r.Finished {
			return r, true
		}
	}
	return domain.ScanRecord{}, false
}

func (s *ScanStore) GetCounters(ctx context.Context, domainName string) (domain.Counters, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	r, ok := s.findActiveLocked(domainName)
	if !ok {
		return domain.Counters{}, domain.ErrNotFound
	}
	return r.Counters(), nil
}

func (s *ScanStore) FindActiveByDomain(ctx context.Context, domainName string) (*domain.ScanRecord, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	r, ok := s.findActiveLocked(domainName)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (s *ScanStore) Insert(ctx context.Context, rec domain.ScanRecord) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("Insert", rec.ID); err != nil {
		return err
	}
	if _, exists := s.idx.scans[rec.ID]; exists {
		return domain.ErrDuplicateID
	}
	if !rec.Finished {
		if _, active := s.findActiveLocked(rec.Domain); active {
			return domain.ErrAlreadyActive
		}
	}
	s.idx.scans[rec.ID] = rec
	return nil
}

func (s *ScanStore) ApplyProbeResult(ctx context.Context, id string, outcome domain.ProbeOutcome, now time.Time) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("ApplyProbeResult", id); err != nil {
		return err
	}
	r, ok := s.idx.scans[id]
	if !ok || r.Finished {
		return domain.ErrNotFound
	}
	r.TotalScans++
	if outcome.Success() {
		r.SuccessfulScans++
	} else {
		r.FailedScans++
	}
	r.Status = outcome.Status
	r.Details = outcome.Details
	r.LastScanTime = now
	r.GeneratedReport = false
	r.ValidationFailures = 0
	s.idx.scans[id] = r
	return nil
}

func (s *ScanStore) MarkFinished(ctx context.Context, id string, now time.Time) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("MarkFinished", id); err != nil {
		return err
	}
	r, ok := s.idx.scans[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !r.Finished {
		r.Finished = true
		r.LastScanTime = now
		s.idx.scans[id] = r
	}
	return nil
}

func (s *ScanStore) Remove(ctx context.Context, id string) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("Remove", id); err != nil {
		return err
	}
	delete(s.idx.scans, id)
	return nil
}

func (s *ScanStore) RecordValidationFailure(ctx context.Context, id string) (int, error) {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("RecordValidationFailure", id); err != nil {
		return 0, err
	}
	r, ok := s.idx.scans[id]
	if !ok || r.Finished {
		return 0, domain.ErrNotFound
	}
	r.ValidationFailures++
	s.idx.scans[id] = r
	return r.ValidationFailures, nil
}

func (s *ScanStore) ResetValidationFailures(ctx context.Context, id string) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if r, ok := s.idx.scans[id]; ok && !r.Finished {
		r.ValidationFailures = 0
		s.idx.scans[id] = r
	}
	return nil
}

func (s *ScanStore) ListReportable(ctx context.Context) ([]domain.ScanRecord, error) {
	return s.list(
		func(r domain.ScanRecord) bool { return !r.Finished && !r.GeneratedReport },
		func(a, b domain.ScanRecord) bool {
			if !a.LastScanTime.Equal(b.LastScanTime) {
				return a.LastScanTime.After(b.LastScanTime)
			}
			return a.ID < b.ID
		},
	), nil
}

func (s *ScanStore) MarkReportGenerated(ctx context.Context, id, detailsPath string) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("MarkReportGenerated", id); err != nil {
		return err
	}
	r, ok := s.idx.scans[id]
	if !ok || r.Finished {
		return domain.ErrNotFound
	}
	r.GeneratedReport = true
	r.DetailsPath = detailsPath
	s.idx.scans[id] = r
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Archive
// ─────────────────────────────────────────────────────────────────

type ArchiveStore struct {
	idx *Index
}

func (s *ArchiveStore) Append(ctx context.Context, rec domain.ScanRecord, now time.Time) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("Append", rec.ID); err != nil {
		return err
	}
	rec.Finished = true
	prev, exists := s.idx.archive[rec.ID]
	next := domain.ArchiveRecord{ScanRecord: rec, ArchivedAt: now}
	if exists {
		next.Archived = prev.Archived
		next.ArchivedAt = prev.ArchivedAt
		if prev.DetailsPath != "" {
			next.DetailsPath = prev.DetailsPath
		}
	}
	s.idx.archive[rec.ID] = next
	return nil
}

func (s *ArchiveStore) Get(ctx context.Context, id string) (*domain.ArchiveRecord, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	r, ok := s.idx.archive[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (s *ArchiveStore) list(match func(domain.ArchiveRecord) bool, less func(a, b domain.ArchiveRecord) bool, limit int) []domain.ArchiveRecord {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	out := make([]domain.ArchiveRecord, 0, len(s.idx.archive))
	for _, r := range s.idx.archive {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *ArchiveStore) ListUnarchived(ctx context.Context, limit int) ([]domain.ArchiveRecord, error) {
	return s.list(
		func(r domain.ArchiveRecord) bool { return !r.Archived },
		func(a, b domain.ArchiveRecord) bool {
			if !a.LastScanTime.Equal(b.LastScanTime) {
				return a.LastScanTime.After(b.LastScanTime)
			}
			return a.ID < b.ID
		},
		limit,
	), nil
}

func (s *ArchiveStore) ListRecent(ctx context.Context, limit int) ([]domain.ArchiveRecord, error) {
	return s.list(
		func(domain.ArchiveRecord) bool { return true },
		func(a, b domain.ArchiveRecord) bool {
			if !a.ArchivedAt.Equal(b.ArchivedAt) {
				return a.ArchivedAt.After(b.ArchivedAt)
			}
			return a.ID < b.ID
		},
		limit,
	), nil
}

func (s *ArchiveStore) MarkArchived(ctx context.Context, id, detailsPath string) error {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("MarkArchived", id); err != nil {
		return err
	}
	r, ok := s.idx.archive[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Archived = true
	if detailsPath != "" {
		r.DetailsPath = detailsPath
	}
	s.idx.archive[id] = r
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Duplicates and sweeps
// ─────────────────────────────────────────────────────────────────

type DuplicateStore struct {
	idx *Index
}

func (s *DuplicateStore) Record(ctx context.Context, e domain.DuplicateEntry) (int64, error) {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	if err := s.idx.injected("RecordDuplicate", e.Domain); err != nil {
		return 0, err
	}
	e.ID = int64(len(s.idx.duplicates) + 1)
	s.idx.duplicates = append(s.idx.duplicates, e)
	return e.ID, nil
}

func (s *DuplicateStore) ListDuplicates(ctx context.Context, limit int) ([]domain.DuplicateEntry, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	out := make([]domain.DuplicateEntry, 0, len(s.idx.duplicates))
	for i := len(s.idx.duplicates) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.idx.duplicates[i])
	}
	return out, nil
}

type SweepStore struct {
	idx *Index
}

func (s *SweepStore) RecordSweep(ctx context.Context, sum domain.SweepSummary) (int64, error) {
	s.idx.mu.Lock()
	defer s.idx.mu.Unlock()

	sum.ID = int64(len(s.idx.sweeps) + 1)
	s.idx.sweeps = append(s.idx.sweeps, sum)
	return sum.ID, nil
}

func (s *SweepStore) ListSweeps(ctx context.Context, limit int) ([]domain.SweepSummary, error) {
	s.idx.mu.RLock()
	defer s.idx.mu.RUnlock()

	out := make([]domain.SweepSummary, 0, len(s.idx.sweeps))
	for i := len(s.idx.sweeps) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.idx.sweeps[i])
	}
	return out, nil
}
