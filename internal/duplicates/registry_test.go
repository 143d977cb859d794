package duplicates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/store/memory"
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func seeded(t *testing.T, started time.Time) (*Registry, *memory.Index, *memory.DuplicateStore) {
	t.Helper()
	stores, idx := memory.New()
	rec := domain.AdmissionRequest{Domain: "example.com", Protocol: domain.ProtocolHTTPS, DurationHours: 24}.
		NewRecord("existing", started)
	rec.TotalScans, rec.SuccessfulScans, rec.FailedScans = 4, 3, 1
	idx.Seed(rec)

	dups := stores.Duplicates.(*memory.DuplicateStore)
	return NewRegistry(stores.Scans, dups, logger.Nop()), idx, dups
}

func TestCheckAndRecord(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		started time.Time
		want    domain.Verdict
		entries int
	}{
		{"unknown domain", "other.com", now.Add(-time.Minute), domain.VerdictClear, 0},
		{"within cooldown", "example.com", now.Add(-10 * time.Minute), domain.VerdictDuplicate, 1},
		{"exactly at cooldown edge", "example.com", now.Add(-3 * time.Hour), domain.VerdictDuplicate, 1},
		{"older than cooldown", "example.com", now.Add(-4 * time.Hour), domain.VerdictClear, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _, dups := seeded(t, tt.started)
			req := domain.AdmissionRequest{Domain: tt.domain, Protocol: domain.ProtocolHTTP, DurationHours: 2}

			got, _, err := reg.CheckAndRecord(context.Background(), req, now, 3*time.Hour)
			if err != nil {
				t.Fatalf("CheckAndRecord() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckAndRecord() = %v, want %v", got, tt.want)
			}

			entries, _ := dups.ListDuplicates(context.Background(), 10)
			if len(entries) != tt.entries {
				t.Errorf("got %d duplicate entries, want %d", len(entries), tt.entries)
			}
		})
	}
}

func TestCheckAndRecord_Snapshot(t *testing.T) {
	started := now.Add(-10 * time.Minute)
	reg, _, dups := seeded(t, started)
	req := domain.AdmissionRequest{Domain: "example.com", Protocol: domain.ProtocolHTTP, DurationHours: 2}

	_, existing, err := reg.CheckAndRecord(context.Background(), req, now, 3*time.Hour)
	if err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if existing == nil || existing.ID != "existing" {
		t.Fatalf("expected existing record, got %+v", existing)
	}

	entries, _ := dups.ListDuplicates(context.Background(), 1)
	e := entries[0]
	if e.ExistingID != "existing" || !e.ExistingStart.Equal(started) || !e.AttemptedAt.Equal(now) {
		t.Errorf("unexpected entry identity: %+v", e)
	}
	if e.Existing != (domain.Counters{Total: 4, Success: 3, Fail: 1}) {
		t.Errorf("counters snapshot = %+v", e.Existing)
	}
	if e.Protocol != domain.ProtocolHTTP || e.DurationHours != 2 {
		t.Errorf("request fields not kept: %+v", e)
	}
}

func TestCheckAndRecord_RecordFailure(t *testing.T) {
	reg, idx, _ := seeded(t, now.Add(-time.Minute))
	idx.SetFault(func(op, _ string) error {
		if op == "RecordDuplicate" {
			return errors.New("write failed")
		}
		return nil
	})

	req := domain.AdmissionRequest{Domain: "example.com", Protocol: domain.ProtocolHTTPS, DurationHours: 1}
	got, _, err := reg.CheckAndRecord(context.Background(), req, now, time.Hour)
	if err == nil {
		t.Fatal("expected error when the entry cannot be stored")
	}
	if got != domain.VerdictDuplicate {
		t.Errorf("verdict = %v, want duplicate even when the audit write fails", got)
	}
}
