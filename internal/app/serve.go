package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/httpserver"
	"github.com/MrSnakeDoc/checkit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/scheduler"
	"github.com/MrSnakeDoc/checkit/internal/version"
)

// Serve runs the HTTP API with periodic sweeps until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infof("🚀 Starting checkit %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("checkit %s", version.String())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepTrigger := make(chan struct{}, 1)

	var (
		reloader      *scheduler.SitesReloader
		reloadTrigger chan struct{}
	)
	if a.cfg.SitesFile != "" {
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewSitesReloader(a.cfg.SitesFile, a.logger, a.cfg.SitesReloadInterval, reloadTrigger)
		if err := reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sites reloader: %w", err)
		}
		a.sites = func() ([]domain.AdmissionRequest, error) { return reloader.Current(), nil }
		a.logger.Info("sites reloader started",
			logger.String("file", a.cfg.SitesFile),
			logger.Duration("interval", a.cfg.SitesReloadInterval))
	}

	d := deps.Deps{
		Logger:             a.logger,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		AllowedHosts:       a.cfg.AllowedHosts,
		AllowedCIDRS:       a.cfg.AllowedCIDRS,
		TrustProxy:         a.cfg.TrustProxy,
		Scans:              a.stores.Scans,
		Archive:            a.stores.Archive,
		Sweeps:             a.stores.Sweeps,
		DBPing:             a.stores.Ping,
		Admitter:           a.admitter,
		ArchiveLimit:       a.cfg.ArchiveListLimit,
		AdmitBurst:         a.cfg.AdmitBurst,
		AdmitRefillPerMin:  a.cfg.AdmitRefillPerMin,
		SweepTrigger:       sweepTrigger,
		SitesReloadTrigger: reloadTrigger,
		MetricsHandler:     a.metrics.Handler(),
		ReportDir:          a.cfg.ReportDir,
	}
	if a.redisStore != nil {
		d.RedisPing = a.redisStore.Ping
	}
	server := httpserver.New(a.cfg, a.logger, d)

	sweeper := scheduler.NewSweeper(func(ctx context.Context) error {
		_, err := a.Sweep(ctx, SweepOptions{})
		return err
	}, a.logger, a.cfg.SweepInterval, sweepTrigger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	a.logger.Info("sweeper started", logger.Duration("interval", a.cfg.SweepInterval))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	sweeper.Stop()
	if reloader != nil {
		reloader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if runErr == nil {
		a.logger.Info("✅ checkit stopped cleanly")
	}
	return runErr
}
