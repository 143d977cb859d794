package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/store/sqlite"
)

func newMockScanStore(t *testing.T) (*sqlite.ScanStore, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "sqlite")
	return sqlite.NewScanStore(db), mock, func() { mockDB.Close() }
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScanStore_ApplyProbeResult_WriteFailure(t *testing.T) {
	scans, mock, cleanup := newMockScanStore(t)
	defer cleanup()

	lockErr := errors.New("database is locked")
	mock.ExpectExec("UPDATE scans").
		WithArgs(1, 0, "Up", "HTTP 200 OK", baseTime.Unix(), "id-1").
		WillReturnError(lockErr)

	err := scans.ApplyProbeResult(context.Background(), "id-1",
		domain.ProbeOutcome{Status: domain.StatusUp, Details: "HTTP 200 OK"}, baseTime)
	if !errors.Is(err, lockErr) {
		t.Errorf("expected wrapped lock error, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestScanStore_ApplyProbeResult_NoRowIsNotFound(t *testing.T) {
	scans, mock, cleanup := newMockScanStore(t)
	defer cleanup()

	mock.ExpectExec("UPDATE scans").
		WithArgs(0, 1, "Down", "timeout", baseTime.Unix(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := scans.ApplyProbeResult(context.Background(), "gone",
		domain.ProbeOutcome{Status: domain.StatusDown, Details: "timeout"}, baseTime)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestScanStore_ListActive_QueryFailure(t *testing.T) {
	scans, mock, cleanup := newMockScanStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .+ FROM scans WHERE finished = 0").
		WillReturnError(errors.New("disk I/O error"))

	if _, err := scans.ListActive(context.Background()); err == nil {
		t.Error("expected error from ListActive")
	}

	expectationsMet(t, mock)
}

func TestScanStore_Remove_WriteFailure(t *testing.T) {
	scans, mock, cleanup := newMockScanStore(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM scans").
		WithArgs("id-1").
		WillReturnError(errors.New("database is locked"))

	if err := scans.Remove(context.Background(), "id-1"); err == nil {
		t.Error("expected error from Remove")
	}

	expectationsMet(t, mock)
}
