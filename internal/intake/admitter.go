// Package intake turns admission requests into active scan records.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/duplicates"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

// Outcome classifies what happened to one admission request.
type Outcome int

const (
	OutcomeAdmitted Outcome = iota
	// OutcomeDuplicate: an active record started within the cooldown.
	OutcomeDuplicate
	// OutcomeAlreadyActive: an older active record still owns the domain.
	OutcomeAlreadyActive
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAlreadyActive:
		return "already_active"
	case OutcomeRejected:
		return "rejected"
	}
	return "unknown"
}

// Result is the admission answer. Record is the new record when admitted and
// the existing one for duplicates.
type Result struct {
	Request domain.AdmissionRequest
	Outcome Outcome
	Record  *domain.ScanRecord
	Reason  string
}

// ScanWriter is the part of the scan store the admitter needs.
type ScanWriter interface {
	duplicates.ActiveFinder
	Insert(ctx context.Context, rec domain.ScanRecord) error
}

type Options struct {
	DefaultProtocol      domain.Protocol
	DefaultDurationHours int
	Cooldown             time.Duration
}

type Admitter struct {
	scans    ScanWriter
	registry *duplicates.Registry
	opts     Options
	log      logger.Logger

	// NewID generates record ids; replaced in tests.
	NewID func() string
}

func NewAdmitter(scans ScanWriter, registry *duplicates.Registry, opts Options, log logger.Logger) *Admitter {
	return &Admitter{
		scans:    scans,
		registry: registry,
		opts:     opts,
		log:      log,
		NewID:    uuid.NewString,
	}
}

// Admit validates req and creates an active record unless the domain is
// already monitored. Only store failures are returned as errors.
func (a *Admitter) Admit(ctx context.Context, req domain.AdmissionRequest, now time.Time) (Result, error) {
	norm, err := req.Normalize(a.opts.DefaultProtocol, a.opts.DefaultDurationHours)
	if err != nil {
		a.log.Warn("admission rejected", logger.String("domain", req.Domain), logger.Error(err))
		return Result{Request: req, Outcome: OutcomeRejected, Reason: err.Error()}, nil
	}

	verdict, existing, err := a.registry.CheckAndRecord(ctx, norm, now, a.opts.Cooldown)
	if err != nil && verdict != domain.VerdictDuplicate {
		return Result{Request: norm}, err
	}
	if verdict == domain.VerdictDuplicate {
		// a failed audit write does not make the request admissible
		if err != nil {
			a.log.Error("duplicate entry not stored", logger.String("domain", norm.Domain), logger.Error(err))
		}
		return Result{Request: norm, Outcome: OutcomeDuplicate, Record: existing, Reason: "started within cooldown"}, nil
	}
	if existing != nil {
		return a.alreadyActive(norm, existing), nil
	}

	rec := norm.NewRecord(a.NewID(), now)
	if err := a.scans.Insert(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyActive) {
			// lost a race with a concurrent admission
			current, findErr := a.scans.FindActiveByDomain(ctx, norm.Domain)
			if findErr != nil {
				current = nil
			}
			return a.alreadyActive(norm, current), nil
		}
		return Result{Request: norm}, fmt.Errorf("admit %s: %w", norm.Domain, err)
	}

	a.log.Info("scan admitted",
		logger.String("domain", rec.Domain),
		logger.String("id", rec.ID),
		logger.String("protocol", string(rec.Protocol)),
		logger.Int("duration_hours", rec.DurationHours))

	return Result{Request: norm, Outcome: OutcomeAdmitted, Record: &rec}, nil
}

// Ensure admits req only when its domain has no active record. It is used for
// the sites file, which restates the desired set on every sweep and must not
// count as a re-registration.
func (a *Admitter) Ensure(ctx context.Context, req domain.AdmissionRequest, now time.Time) (Result, error) {
	norm, err := req.Normalize(a.opts.DefaultProtocol, a.opts.DefaultDurationHours)
	if err != nil {
		a.log.Warn("site rejected", logger.String("domain", req.Domain), logger.Error(err))
		return Result{Request: req, Outcome: OutcomeRejected, Reason: err.Error()}, nil
	}

	existing, err := a.scans.FindActiveByDomain(ctx, norm.Domain)
	switch {
	case err == nil:
		return Result{Request: norm, Outcome: OutcomeAlreadyActive, Record: existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return Result{Request: norm}, fmt.Errorf("ensure %s: %w", norm.Domain, err)
	}

	return a.Admit(ctx, norm, now)
}

func (a *Admitter) alreadyActive(req domain.AdmissionRequest, existing *domain.ScanRecord) Result {
	a.log.Debug("domain already monitored", logger.String("domain", req.Domain))
	return Result{Request: req, Outcome: OutcomeAlreadyActive, Record: existing, Reason: "domain already has an active scan"}
}
