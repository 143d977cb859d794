package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func record(id, host string) domain.ScanRecord {
	return domain.AdmissionRequest{Domain: host, Protocol: domain.ProtocolHTTPS, DurationHours: 1}.NewRecord(id, t0)
}

func TestNew(t *testing.T) {
	stores, idx := New()
	if idx == nil || stores.Scans == nil || stores.Archive == nil {
		t.Fatal("New() returned incomplete stores")
	}
	active, err := stores.Scans.ListActive(context.Background())
	if err != nil || len(active) != 0 {
		t.Errorf("fresh index should be empty, got %v (err=%v)", active, err)
	}
}

func TestInsertRejectsSecondActiveRecord(t *testing.T) {
	ctx := context.Background()
	stores, _ := New()

	if err := stores.Scans.Insert(ctx, record("1", "a.test")); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := stores.Scans.Insert(ctx, record("1", "b.test")); !errors.Is(err, domain.ErrDuplicateID) {
		t.Errorf("Insert() same id = %v, want ErrDuplicateID", err)
	}
	if err := stores.Scans.Insert(ctx, record("2", "a.test")); !errors.Is(err, domain.ErrAlreadyActive) {
		t.Errorf("Insert() same domain = %v, want ErrAlreadyActive", err)
	}
}

func TestConcurrentProbeResults(t *testing.T) {
	ctx := context.Background()
	stores, _ := New()
	if err := stores.Scans.Insert(ctx, record("1", "a.test")); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.StatusUp
			if i%2 == 0 {
				status = domain.StatusDown
			}
			_ = stores.Scans.ApplyProbeResult(ctx, "1", domain.ProbeOutcome{Status: status}, t0)
		}(i)
	}
	wg.Wait()

	c, err := stores.Scans.GetCounters(ctx, "a.test")
	if err != nil {
		t.Fatalf("GetCounters() error: %v", err)
	}
	if c.Total != 50 || !c.Consistent() {
		t.Errorf("counters = %+v, want 50 consistent probes", c)
	}
}

func TestArchiveAppendKeepsArchivedFlag(t *testing.T) {
	ctx := context.Background()
	stores, _ := New()
	rec := record("1", "a.test")

	if err := stores.Archive.Append(ctx, rec, t0); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := stores.Archive.MarkArchived(ctx, "1", "p"); err != nil {
		t.Fatalf("MarkArchived() error: %v", err)
	}
	if err := stores.Archive.Append(ctx, rec, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := stores.Archive.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !got.Archived || got.DetailsPath != "p" || !got.ArchivedAt.Equal(t0) || !got.Finished {
		t.Errorf("unexpected archive record after re-append: %+v", got)
	}

	pending, _ := stores.Archive.ListUnarchived(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("ListUnarchived() = %d records, want 0", len(pending))
	}
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	stores, idx := New()
	idx.Seed(record("1", "a.test"))

	boom := errors.New("disk full")
	idx.SetFault(func(op, id string) error {
		if op == "ApplyProbeResult" {
			return boom
		}
		return nil
	})

	if err := stores.Scans.ApplyProbeResult(ctx, "1", domain.ProbeOutcome{Status: domain.StatusUp}, t0); !errors.Is(err, boom) {
		t.Errorf("ApplyProbeResult() = %v, want injected error", err)
	}
	if err := stores.Scans.Remove(ctx, "1"); err != nil {
		t.Errorf("Remove() should not be affected, got %v", err)
	}
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}
}
