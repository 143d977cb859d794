package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/store"
	"github.com/MrSnakeDoc/checkit/internal/store/memory"
)

var now = time.Date(2026, 6, 15, 18, 30, 0, 0, time.UTC)

type fakePublisher struct {
	calls int
	dir   string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, dir, _ string) error {
	f.calls++
	f.dir = dir
	return f.err
}

func newEmitter(t *testing.T, pub Publisher) (*Emitter, store.Stores, *memory.Index, Options) {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		ReportDir:    filepath.Join(root, "public"),
		DetailsDir:   filepath.Join(root, "public", "details"),
		ArchiveLimit: 10,
	}
	stores, idx := memory.New()
	e := NewEmitter(stores.Scans, stores.Archive, pub, opts, logger.Nop())
	e.Now = func() time.Time { return now }
	return e, stores, idx, opts
}

func activeRecord(id, host string) domain.ScanRecord {
	rec := domain.AdmissionRequest{Domain: host, Protocol: domain.ProtocolHTTPS, DurationHours: 24}.
		NewRecord(id, now.Add(-6*time.Hour))
	rec.TotalScans, rec.SuccessfulScans, rec.FailedScans = 4, 3, 1
	rec.Status = domain.StatusUp
	rec.LastScanTime = now.Add(-time.Minute)
	return rec
}

func TestRun_WritesArtifactsOnce(t *testing.T) {
	e, stores, idx, opts := newEmitter(t, nil)
	ctx := context.Background()
	idx.Seed(activeRecord("0123456789abcdef", "example.com"))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)

	rec, err := stores.Scans.Get(ctx, "0123456789abcdef")
	require.NoError(t, err)
	assert.True(t, rec.GeneratedReport)
	assert.Equal(t, "2026/06/15/example.com-01234567", rec.DetailsPath)

	dir := filepath.Join(opts.DetailsDir, filepath.FromSlash(rec.DetailsPath))
	for _, name := range []string{"report.json", "uniq_id.txt", "details.html", "summary.pdf"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "example.com", summary["domain"])
	assert.Equal(t, 75.0, summary["uptime"])
	assert.Equal(t, 25.0, summary["progress"])

	// the flag suppresses regeneration
	res, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Generated)
}

func TestRun_NewProbeDataInvalidatesArtifact(t *testing.T) {
	e, stores, idx, _ := newEmitter(t, nil)
	ctx := context.Background()
	idx.Seed(activeRecord("a", "example.com"))

	_, err := e.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, stores.Scans.ApplyProbeResult(ctx, "a", domain.ProbeOutcome{Status: domain.StatusDown}, now))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
}

func TestRun_ArchivedFlagIsPermanent(t *testing.T) {
	e, stores, _, _ := newEmitter(t, nil)
	ctx := context.Background()
	rec := activeRecord("done", "done.example")
	rec.Finished = true
	require.NoError(t, stores.Archive.Append(ctx, rec, now))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)

	arch, err := stores.Archive.Get(ctx, "done")
	require.NoError(t, err)
	assert.True(t, arch.Archived)
	assert.NotEmpty(t, arch.DetailsPath)

	// a repeated move must not reopen the record
	require.NoError(t, stores.Archive.Append(ctx, rec, now.Add(time.Hour)))
	res, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Archived)
}

func TestRun_FailedFlagWriteIsRetried(t *testing.T) {
	e, stores, idx, _ := newEmitter(t, nil)
	ctx := context.Background()
	rec := activeRecord("x", "x.example")
	rec.Finished = true
	require.NoError(t, stores.Archive.Append(ctx, rec, now))

	idx.SetFault(func(op, _ string) error {
		if op == "MarkArchived" {
			return errors.New("database is locked")
		}
		return nil
	})
	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	arch, _ := stores.Archive.Get(ctx, "x")
	assert.False(t, arch.Archived)

	idx.SetFault(nil)
	res, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)
}

func TestRun_UnwritableDetailsDirLeavesFlagUnset(t *testing.T) {
	e, stores, idx, opts := newEmitter(t, nil)
	ctx := context.Background()
	idx.Seed(activeRecord("a", "example.com"))

	// a regular file where the year directory should be
	require.NoError(t, os.MkdirAll(opts.DetailsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.DetailsDir, "2026"), []byte("x"), 0o644))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	rec, _ := stores.Scans.Get(ctx, "a")
	assert.False(t, rec.GeneratedReport)
}

func TestRun_SummaryPage(t *testing.T) {
	e, _, idx, opts := newEmitter(t, nil)
	ctx := context.Background()

	res, err := e.Run(ctx)
	require.NoError(t, err)
	page, err := os.ReadFile(res.IndexPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "No active scans")

	up := activeRecord("a", "up.example")
	down := activeRecord("b", "down.example")
	down.Status = domain.StatusDown
	idx.Seed(up)
	idx.Seed(down)

	res, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.ReportDir, "report.html"), res.IndexPath)

	page, err = os.ReadFile(res.IndexPath)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "1 out of 2 hosts are DOWN")
	assert.Contains(t, html, `href="details/`+RelativeDir(up)+`/details.html"`)
	assert.False(t, strings.Contains(html, "{{"))
}

func TestRun_PublishFailureIsAdvisory(t *testing.T) {
	pub := &fakePublisher{err: errors.New("remote rejected")}
	e, stores, idx, opts := newEmitter(t, pub)
	ctx := context.Background()
	idx.Seed(activeRecord("a", "example.com"))

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, opts.DetailsDir, pub.dir)
	assert.False(t, res.Published)

	rec, _ := stores.Scans.Get(ctx, "a")
	assert.True(t, rec.GeneratedReport)

	// nothing new, nothing to publish
	_, err = e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
}

func TestRelativeDir(t *testing.T) {
	rec := domain.ScanRecord{ID: "abc", Domain: "weird/host name", StartTime: time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2025/01/02/weird_host_name-abc", RelativeDir(rec))
}
