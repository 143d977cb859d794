// Package lifecycle runs the sweep: every active record is validated,
// expired into the archive, skipped, or probed, exactly once per run.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/intake"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/probe"
	"github.com/MrSnakeDoc/checkit/internal/store"
)

const (
	DefaultConcurrency        = 8
	DefaultEvictAfterFailures = 1
)

// Validator answers whether a domain still resolves.
type Validator interface {
	IsResolvable(ctx context.Context, domain string) bool
}

// Admitter creates records for incoming requests.
type Admitter interface {
	Admit(ctx context.Context, req domain.AdmissionRequest, now time.Time) (intake.Result, error)
	Ensure(ctx context.Context, req domain.AdmissionRequest, now time.Time) (intake.Result, error)
}

// Observer is notified of probe results and finished sweeps.
type Observer interface {
	ObserveProbe(strategy string, status domain.Status, latency time.Duration)
	ObserveSweep(summary domain.SweepSummary)
}

type nopObserver struct{}

func (nopObserver) ObserveProbe(string, domain.Status, time.Duration) {}
func (nopObserver) ObserveSweep(domain.SweepSummary)                  {}

// Batch is the intake processed at the start of a sweep.
type Batch struct {
	// Admissions are explicit requests. A request repeating a record started
	// within the cooldown is recorded as a duplicate and holds that record's
	// probe back for this sweep.
	Admissions []domain.AdmissionRequest
	// Sites is the desired set from the sites file. Entries whose domain is
	// already monitored are left alone.
	Sites []domain.AdmissionRequest
}

type Options struct {
	Concurrency int
	// EvictAfterFailures is the number of consecutive failed validations
	// that removes a record. 1 evicts on the first failure.
	EvictAfterFailures int
	// ProbeDeadline caps a single probe on top of the strategy's own timeouts.
	ProbeDeadline time.Duration
}

type Engine struct {
	scans     store.ScanStore
	archive   store.ArchiveStore
	sweeps    store.SweepStore
	admitter  Admitter
	validator Validator
	prober    probe.Strategy
	observer  Observer
	opts      Options
	log       logger.Logger

	// Now is the clock; replaced in tests.
	Now func() time.Time
}

func NewEngine(stores store.Stores, admitter Admitter, validator Validator, prober probe.Strategy, opts Options, log logger.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.EvictAfterFailures <= 0 {
		opts.EvictAfterFailures = DefaultEvictAfterFailures
	}
	return &Engine{
		scans:     stores.Scans,
		archive:   stores.Archive,
		sweeps:    stores.Sweeps,
		admitter:  admitter,
		validator: validator,
		prober:    prober,
		observer:  nopObserver{},
		opts:      opts,
		log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetObserver installs o; nil restores the no-op observer.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	e.observer = o
}

// Sweep runs one full pass. Per-record store failures are logged and counted
// in the summary; the only error returned is a failure to read the active
// set (or a cancelled context).
func (e *Engine) Sweep(ctx context.Context, batch Batch) (domain.SweepSummary, error) {
	t := &tally{}
	t.update(func(s *domain.SweepSummary) { s.StartedAt = e.Now() })

	e.recoverStranded(ctx, t)

	active, err := e.scans.ListActive(ctx)
	if err != nil {
		e.log.Error("cannot read active scans, sweep aborted", logger.Error(err))
		return t.snapshot(), fmt.Errorf("sweep: %w", err)
	}

	work, pending := e.processIntake(ctx, batch, active, t)
	t.update(func(s *domain.SweepSummary) { s.Active = len(work) })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for _, rec := range work {
		if gctx.Err() != nil {
			break
		}
		_, dup := pending[rec.ID]
		g.Go(func() error {
			d := e.process(gctx, rec, dup, t)
			t.add(d)
			return nil
		})
	}
	_ = g.Wait()

	t.update(func(s *domain.SweepSummary) { s.FinishedAt = e.Now() })
	summary := t.snapshot()

	if id, err := e.sweeps.RecordSweep(context.WithoutCancel(ctx), summary); err != nil {
		e.log.Error("failed to record sweep summary", logger.Error(err))
	} else {
		summary.ID = id
	}

	e.observer.ObserveSweep(summary)
	e.log.Info("sweep complete",
		logger.Int("active", summary.Active),
		logger.Int("admitted", summary.Admitted),
		logger.Int("duplicates", summary.Duplicates),
		logger.Int("up", summary.Up),
		logger.Int("down", summary.Down),
		logger.Int("archived", summary.Archived),
		logger.Int("evicted", summary.Evicted),
		logger.Int("deferred", summary.Deferred),
		logger.Int("skipped", summary.Skipped),
		logger.Int("recovered", summary.Recovered),
		logger.Int("store_errors", summary.StoreErrors),
		logger.Duration("took", summary.Duration()))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("sweep interrupted: %w", err)
	}
	return summary, nil
}

// recoverStranded completes archive moves interrupted by a previous run:
// rows marked finished but still present in the scan store.
func (e *Engine) recoverStranded(ctx context.Context, t *tally) {
	finished, err := e.scans.ListFinished(ctx)
	if err != nil {
		t.storeError()
		e.log.Error("failed to list stranded records", logger.Error(err))
		return
	}

	for _, rec := range finished {
		if err := e.moveToArchive(ctx, rec); err != nil {
			t.storeError()
			e.log.Error("stranded record not recovered",
				logger.String("domain", rec.Domain),
				logger.String("id", rec.ID),
				logger.Error(err))
			continue
		}
		t.update(func(s *domain.SweepSummary) { s.Recovered++ })
		e.log.Warn("recovered stranded record",
			logger.String("domain", rec.Domain),
			logger.String("id", rec.ID))
	}
}

// processIntake admits the batch and returns the work list along with the
// ids of records held back by a duplicate admission.
func (e *Engine) processIntake(ctx context.Context, batch Batch, active []domain.ScanRecord, t *tally) ([]domain.ScanRecord, map[string]struct{}) {
	work := active
	pending := make(map[string]struct{})
	now := e.Now()

	handle := func(req domain.AdmissionRequest, res intake.Result, err error) {
		if err != nil {
			t.storeError()
			e.log.Error("admission failed", logger.String("domain", req.Domain), logger.Error(err))
			return
		}
		switch res.Outcome {
		case intake.OutcomeAdmitted:
			work = append(work, *res.Record)
			t.update(func(s *domain.SweepSummary) { s.Admitted++ })
		case intake.OutcomeDuplicate:
			if res.Record != nil {
				pending[res.Record.ID] = struct{}{}
			}
			t.update(func(s *domain.SweepSummary) { s.Duplicates++ })
		case intake.OutcomeRejected:
			t.update(func(s *domain.SweepSummary) { s.Rejected++ })
		case intake.OutcomeAlreadyActive:
		}
	}

	for _, req := range batch.Admissions {
		res, err := e.admitter.Admit(ctx, req, now)
		handle(req, res, err)
	}
	for _, req := range batch.Sites {
		res, err := e.admitter.Ensure(ctx, req, now)
		handle(req, res, err)
	}
	return work, pending
}

// process walks one record through the state machine. Each record is owned
// by a single goroutine, so expiry and probing never overlap for it.
func (e *Engine) process(ctx context.Context, rec domain.ScanRecord, duplicatePending bool, t *tally) Disposition {
	log := e.log.With(logger.String("domain", rec.Domain), logger.String("id", rec.ID))

	facts := Facts{
		Resolvable:       e.validator.IsResolvable(ctx, rec.Domain),
		Expired:          rec.IsExpired(e.Now()),
		DuplicatePending: duplicatePending,
	}

	switch Decide(facts) {
	case TransitionInvalid:
		return e.invalid(ctx, rec, log, t)
	case TransitionExpired:
		return e.expire(ctx, rec, log, t)
	case TransitionDuplicatePending:
		log.Info("probe skipped, duplicate admission pending")
		return DispositionSkipped
	}

	if rec.ValidationFailures > 0 {
		if err := e.scans.ResetValidationFailures(ctx, rec.ID); err != nil {
			t.storeError()
			log.Error("failed to reset validation failures", logger.Error(err))
		}
	}
	return e.probe(ctx, rec, log, t)
}

func (e *Engine) invalid(ctx context.Context, rec domain.ScanRecord, log logger.Logger, t *tally) Disposition {
	failures, err := e.scans.RecordValidationFailure(ctx, rec.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return DispositionVanished
	}
	if err != nil {
		t.storeError()
		log.Error("failed to record validation failure", logger.Error(err))
		return DispositionFailed
	}

	if failures < e.opts.EvictAfterFailures {
		log.Warn("domain does not resolve, eviction deferred",
			logger.Int("failures", failures),
			logger.Int("threshold", e.opts.EvictAfterFailures))
		return DispositionDeferred
	}

	if err := e.scans.Remove(ctx, rec.ID); err != nil {
		t.storeError()
		log.Error("failed to evict unresolvable domain", logger.Error(err))
		return DispositionFailed
	}
	log.Warn("domain does not resolve, record evicted", logger.Int("failures", failures))
	return DispositionEvicted
}

func (e *Engine) expire(ctx context.Context, rec domain.ScanRecord, log logger.Logger, t *tally) Disposition {
	now := e.Now()
	if err := e.scans.MarkFinished(ctx, rec.ID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DispositionVanished
		}
		t.storeError()
		log.Error("failed to mark record finished", logger.Error(err))
		return DispositionFailed
	}

	finished, err := e.scans.Get(ctx, rec.ID)
	if err != nil {
		// archive what we have; the row is already marked finished
		rec.Finished = true
		rec.LastScanTime = now
		finished = &rec
	}

	if err := e.moveToArchive(ctx, *finished); err != nil {
		t.storeError()
		log.Error("archive move incomplete, will retry next sweep", logger.Error(err))
		return DispositionFailed
	}

	log.Info("monitoring window elapsed, record archived",
		logger.Int("total", finished.TotalScans),
		logger.Float64("uptime", finished.Uptime()))
	return DispositionArchived
}

// moveToArchive is the idempotent append-then-remove half of expiry.
func (e *Engine) moveToArchive(ctx context.Context, rec domain.ScanRecord) error {
	rec.Finished = true
	if err := e.archive.Append(ctx, rec, e.Now()); err != nil {
		return err
	}
	return e.scans.Remove(ctx, rec.ID)
}

func (e *Engine) probe(ctx context.Context, rec domain.ScanRecord, log logger.Logger, t *tally) Disposition {
	pctx := ctx
	if e.opts.ProbeDeadline > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, e.opts.ProbeDeadline)
		defer cancel()
	}

	res := e.prober.Probe(pctx, probe.TargetFor(rec))
	outcome := res.Outcome()
	e.observer.ObserveProbe(e.prober.Name(), outcome.Status, res.Latency)

	if err := e.scans.ApplyProbeResult(ctx, rec.ID, outcome, e.Now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug("record left the active set before its probe result was stored")
			return DispositionVanished
		}
		t.storeError()
		log.Error("failed to store probe result", logger.Error(err))
		return DispositionFailed
	}

	log.Info("probe complete",
		logger.String("status", string(outcome.Status)),
		logger.String("details", outcome.Details),
		logger.Duration("latency", res.Latency))

	if outcome.Success() {
		return DispositionUp
	}
	return DispositionDown
}
