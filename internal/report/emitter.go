// Package report renders per-record artifacts and the summary page, and
// keeps the at-most-once bookkeeping of the generated_report and archived
// flags.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

const DefaultArchiveLimit = 10

// ActiveSource is the read side of the scan store plus its flag setter.
type ActiveSource interface {
	ListActive(ctx context.Context) ([]domain.ScanRecord, error)
	ListReportable(ctx context.Context) ([]domain.ScanRecord, error)
	MarkReportGenerated(ctx context.Context, id, detailsPath string) error
}

// ArchiveSource is the read side of the archive plus its flag setter.
type ArchiveSource interface {
	ListUnarchived(ctx context.Context, limit int) ([]domain.ArchiveRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ArchiveRecord, error)
	MarkArchived(ctx context.Context, id, detailsPath string) error
}

type Options struct {
	ReportDir    string // report.html goes here
	DetailsDir   string // per-record directories go here
	ArchiveLimit int
}

// Result counts what one run produced.
type Result struct {
	Generated int
	Archived  int
	Failed    int
	IndexPath string
	Published bool
}

type Emitter struct {
	active    ActiveSource
	archive   ArchiveSource
	publisher Publisher
	opts      Options
	log       logger.Logger

	Now func() time.Time
}

func NewEmitter(active ActiveSource, archive ArchiveSource, publisher Publisher, opts Options, log logger.Logger) *Emitter {
	if opts.ArchiveLimit <= 0 {
		opts.ArchiveLimit = DefaultArchiveLimit
	}
	return &Emitter{
		active:    active,
		archive:   archive,
		publisher: publisher,
		opts:      opts,
		log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run writes artifacts for every record whose flag is unset, sets the flag
// after a successful write, then rebuilds the summary page. A record whose
// write fails keeps its flag unset and is retried on the next run.
func (e *Emitter) Run(ctx context.Context) (Result, error) {
	var res Result
	now := e.Now()

	reportable, err := e.active.ListReportable(ctx)
	if err != nil {
		return res, fmt.Errorf("list reportable scans: %w", err)
	}
	for _, rec := range reportable {
		rel, err := e.writeDetails(rec, false, now)
		if err == nil {
			err = e.active.MarkReportGenerated(ctx, rec.ID, rel)
		}
		if err != nil {
			res.Failed++
			e.log.Error("report not generated",
				logger.String("domain", rec.Domain), logger.String("id", rec.ID), logger.Error(err))
			continue
		}
		res.Generated++
	}

	unarchived, err := e.archive.ListUnarchived(ctx, e.opts.ArchiveLimit)
	if err != nil {
		return res, fmt.Errorf("list unarchived records: %w", err)
	}
	for _, rec := range unarchived {
		rel, err := e.writeDetails(rec.ScanRecord, true, now)
		if err == nil {
			err = e.archive.MarkArchived(ctx, rec.ID, rel)
		}
		if err != nil {
			res.Failed++
			e.log.Error("archive report not generated",
				logger.String("domain", rec.Domain), logger.String("id", rec.ID), logger.Error(err))
			continue
		}
		res.Archived++
	}

	index, err := e.writeIndex(ctx, now)
	if err != nil {
		return res, err
	}
	res.IndexPath = index

	if e.publisher != nil && res.Generated+res.Archived > 0 {
		msg := fmt.Sprintf("Update reports: %d active, %d archived (%s)", res.Generated, res.Archived, now.Format(time.RFC3339))
		if err := e.publisher.Publish(ctx, e.opts.DetailsDir, msg); err != nil {
			e.log.Warn("publishing reports failed", logger.Error(err))
		} else {
			res.Published = true
		}
	}

	e.log.Info("reports written",
		logger.Int("generated", res.Generated),
		logger.Int("archived", res.Archived),
		logger.Int("failed", res.Failed),
		logger.String("index", res.IndexPath))
	return res, nil
}

func (e *Emitter) writeIndex(ctx context.Context, now time.Time) (string, error) {
	active, err := e.active.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("list active scans: %w", err)
	}
	recent, err := e.archive.ListRecent(ctx, e.opts.ArchiveLimit)
	if err != nil {
		return "", fmt.Errorf("list recent archive: %w", err)
	}

	if err := os.MkdirAll(e.opts.ReportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	view := newIndexView(active, recent, now)
	view.DetailsBase = "details"
	if rel, err := filepath.Rel(e.opts.ReportDir, e.opts.DetailsDir); err == nil {
		view.DetailsBase = filepath.ToSlash(rel)
	}

	path := filepath.Join(e.opts.ReportDir, "report.html")
	if err := renderIndex(path, view); err != nil {
		return "", fmt.Errorf("write summary page: %w", err)
	}
	return path, nil
}
