package lifecycle

import (
	"sync"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// Disposition is the per-record result of a sweep.
type Disposition int

const (
	DispositionUp Disposition = iota
	DispositionDown
	DispositionEvicted
	DispositionDeferred
	DispositionArchived
	DispositionSkipped
	DispositionVanished
	DispositionFailed
)

func (d Disposition) String() string {
	return [...]string{"up", "down", "evicted", "deferred", "archived", "skipped", "vanished", "failed"}[d]
}

// tally accumulates a SweepSummary from concurrent workers.
type tally struct {
	mu  sync.Mutex
	sum domain.SweepSummary
}

func (t *tally) add(d Disposition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch d {
	case DispositionUp:
		t.sum.Up++
	case DispositionDown:
		t.sum.Down++
	case DispositionEvicted:
		t.sum.Evicted++
	case DispositionDeferred:
		t.sum.Deferred++
	case DispositionArchived:
		t.sum.Archived++
	case DispositionSkipped:
		t.sum.Skipped++
	case DispositionVanished:
		t.sum.Vanished++
	case DispositionFailed:
		// store errors are counted where they happen
	}
}

func (t *tally) storeError() {
	t.mu.Lock()
	t.sum.StoreErrors++
	t.mu.Unlock()
}

func (t *tally) update(f func(s *domain.SweepSummary)) {
	t.mu.Lock()
	f(&t.sum)
	t.mu.Unlock()
}

func (t *tally) snapshot() domain.SweepSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum
}
