package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/lifecycle"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/report"
	redisstore "github.com/MrSnakeDoc/checkit/internal/store/redis"
)

// SweepOptions tunes one sweep run.
type SweepOptions struct {
	Admissions []domain.AdmissionRequest
	NoReport   bool
	// Push sends the collectors to the Pushgateway when one is configured.
	Push bool
}

// SweepResult is what the CLI prints after a sweep.
type SweepResult struct {
	Summary domain.SweepSummary
	Report  *report.Result
	// Skipped is set when another process holds the sweep lock.
	Skipped bool
}

// Sweep runs one full cycle: intake, the lifecycle sweep, then the report
// emitter. Only one sweep runs at a time per process, and per Redis when the
// lock is configured.
func (a *App) Sweep(ctx context.Context, opts SweepOptions) (SweepResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	release, err := a.acquireLock(ctx)
	if err != nil {
		if errors.Is(err, redisstore.ErrLockNotAcquired) {
			a.logger.Info("sweep skipped, another process holds the lock")
			return SweepResult{Skipped: true}, nil
		}
		return SweepResult{}, err
	}
	defer release()

	siteReqs, err := a.sites()
	if err != nil {
		// the sweep still runs over the records already admitted
		a.logger.Warn("sites file not loaded", logger.String("file", a.cfg.SitesFile), logger.Error(err))
	}

	summary, err := a.engine.Sweep(ctx, lifecycle.Batch{Admissions: opts.Admissions, Sites: siteReqs})
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep failed: %w", err)
	}
	res := SweepResult{Summary: summary}

	if !opts.NoReport {
		rep, err := a.report(ctx)
		if err != nil {
			a.logger.Error("report run failed", logger.Error(err))
		} else {
			res.Report = &rep
		}
	}

	if a.redisStore != nil {
		if err := a.redisStore.SaveLastSweep(context.WithoutCancel(ctx), summary); err != nil {
			a.logger.Warn("sweep summary not shared", logger.Error(err))
		}
	}

	if opts.Push && a.cfg.PushgatewayURL != "" {
		if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, PushJob); err != nil {
			a.logger.Warn("metrics push failed", logger.String("url", a.cfg.PushgatewayURL), logger.Error(err))
		}
	}

	return res, nil
}

// acquireLock takes the Redis sweep lock and keeps it alive until the
// returned release function runs. Without Redis it is a no-op.
func (a *App) acquireLock(ctx context.Context) (func(), error) {
	if a.redisClient == nil {
		return func() {}, nil
	}

	lock := redisstore.NewSweepLock(a.redisClient, a.cfg.SweepLockTTL)
	if err := lock.Acquire(ctx); err != nil {
		return nil, err
	}
	a.logger.Debug("sweep lock acquired", logger.String("token", lock.Token()))

	ttl := a.cfg.SweepLockTTL
	if ttl <= 0 {
		ttl = redisstore.DefaultLockTTL
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := lock.Extend(ctx); err != nil {
					a.logger.Warn("sweep lock not extended", logger.Error(err))
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("sweep lock not released", logger.Error(err))
		}
	}, nil
}
