package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// Status is a read-only snapshot of every store.
type Status struct {
	Active     []domain.ScanRecord
	Archive    []domain.ArchiveRecord
	Sweeps     []domain.SweepSummary
	Duplicates []domain.DuplicateEntry
	// Shared is the last summary published to Redis, possibly by another host.
	Shared *domain.SweepSummary
}

// Status lists active records and the latest archive, sweep and duplicate rows.
func (a *App) Status(ctx context.Context, limit int) (Status, error) {
	if limit <= 0 {
		limit = a.cfg.ArchiveListLimit
	}

	var (
		st  Status
		err error
	)
	if st.Active, err = a.stores.Scans.ListActive(ctx); err != nil {
		return st, fmt.Errorf("list active: %w", err)
	}
	if st.Archive, err = a.stores.Archive.ListRecent(ctx, limit); err != nil {
		return st, fmt.Errorf("list archive: %w", err)
	}
	if st.Sweeps, err = a.stores.Sweeps.ListSweeps(ctx, limit); err != nil {
		return st, fmt.Errorf("list sweeps: %w", err)
	}
	if st.Duplicates, err = a.stores.Duplicates.ListDuplicates(ctx, limit); err != nil {
		return st, fmt.Errorf("list duplicates: %w", err)
	}

	if a.redisStore != nil {
		shared, err := a.redisStore.LastSweep(ctx)
		switch {
		case err == nil:
			st.Shared = shared
		case !errors.Is(err, domain.ErrNotFound):
			return st, err
		}
	}
	return st, nil
}
