// Package app wires configuration, stores and the lifecycle components into
// the operations exposed by the CLI: sweep, admit, report, status and serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/checkit/internal/config"
	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/duplicates"
	"github.com/MrSnakeDoc/checkit/internal/intake"
	"github.com/MrSnakeDoc/checkit/internal/lifecycle"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/metrics"
	"github.com/MrSnakeDoc/checkit/internal/probe"
	"github.com/MrSnakeDoc/checkit/internal/redis"
	"github.com/MrSnakeDoc/checkit/internal/report"
	"github.com/MrSnakeDoc/checkit/internal/sources/sites"
	"github.com/MrSnakeDoc/checkit/internal/store"
	"github.com/MrSnakeDoc/checkit/internal/store/memory"
	"github.com/MrSnakeDoc/checkit/internal/store/sqlite"
	redisstore "github.com/MrSnakeDoc/checkit/internal/store/redis"
	"github.com/MrSnakeDoc/checkit/internal/utils"
	"github.com/MrSnakeDoc/checkit/internal/validator"
)

// PushJob is the Pushgateway job name of batch sweeps.
const PushJob = "checkit_sweep"

type App struct {
	cfg    *config.Config
	logger logger.Logger

	stores      store.Stores
	redisClient *goredis.Client
	redisStore  *redisstore.Store
	metrics     *metrics.Metrics

	admitter *intake.Admitter
	engine   *lifecycle.Engine
	emitter  *report.Emitter

	// sites returns the desired set for the next sweep.
	sites func() ([]domain.AdmissionRequest, error)

	// mu serialises sweeps and report runs inside this process.
	mu sync.Mutex

	// Now is the clock of admissions; replaced in tests.
	Now func() time.Time
}

// Components lets callers replace the network-facing parts.
type Components struct {
	Validator lifecycle.Validator
	Prober    probe.Strategy
	Publisher report.Publisher
}

// New opens the configured store, applies pending migrations and builds the
// lifecycle components. Failing to open or migrate the database is fatal.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	return NewWithComponents(ctx, cfg, log, Components{})
}

func NewWithComponents(ctx context.Context, cfg *config.Config, log logger.Logger, c Components) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	stores, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  log,
		stores:  stores,
		metrics: metrics.New(),
		Now:     time.Now,
	}

	if cfg.LockEnabled() {
		client, err := redis.DialLock(ctx, redis.LockOptions{
			Addr:     cfg.RedisAddr,
			User:     cfg.RedisUser,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
			Attempts: cfg.RedisDialAttempts,
			Backoff:  cfg.RedisRetryBackoff,
		}, log)
		if err != nil {
			utils.CloseFunc("store", stores.Close, log)
			return nil, fmt.Errorf("sweep lock: %w", err)
		}
		a.redisClient = client
		a.redisStore = redisstore.NewStore(client)
	}

	if c.Validator == nil {
		c.Validator = validator.New(cfg.DNSTimeout)
	}
	if c.Prober == nil {
		c.Prober, err = probe.New(cfg.ProbeMode, probe.Options{
			ProbeTimeout: cfg.ProbeTimeout,
			HTTPTimeout:  cfg.HTTPTimeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	if c.Publisher == nil {
		// a nil *GitPublisher must not become a non-nil interface
		if gp := report.NewGitPublisher(report.PublishConfig{
			Remote: cfg.PublishRemote,
			Branch: cfg.PublishBranch,
			Token:  cfg.PublishToken,
			Author: cfg.PublishAuthor,
		}); gp != nil {
			c.Publisher = gp
		}
	}

	registry := duplicates.NewRegistry(stores.Scans, stores.Duplicates, log)
	a.admitter = intake.NewAdmitter(stores.Scans, registry, intake.Options{
		DefaultProtocol:      domain.Protocol(cfg.DefaultProtocol),
		DefaultDurationHours: cfg.DefaultDurationHours,
		Cooldown:             cfg.Cooldown,
	}, log)

	a.engine = lifecycle.NewEngine(stores, a.admitter, c.Validator, c.Prober, lifecycle.Options{
		Concurrency:        cfg.SweepConcurrency,
		EvictAfterFailures: cfg.EvictAfterFailures,
		ProbeDeadline:      cfg.HTTPTimeout + 2*cfg.ProbeTimeout,
	}, log)
	a.engine.SetObserver(a.metrics)

	a.emitter = report.NewEmitter(stores.Scans, stores.Archive, c.Publisher, report.Options{
		ReportDir:    cfg.ReportDir,
		DetailsDir:   cfg.DetailsDir,
		ArchiveLimit: cfg.ArchiveListLimit,
	}, log)

	a.sites = a.loadSitesFile
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Stores, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("using the in-memory store, state is lost on exit")
		stores, _ := memory.New()
		return stores, nil
	}

	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return store.Stores{}, err
	}
	applied, err := sqlite.NewMigrator(db).Up(ctx)
	if err != nil {
		_ = db.Close()
		return store.Stores{}, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, v := range applied {
		log.Info("migration applied", logger.String("version", v))
	}
	log.Debug("database ready", logger.String("path", cfg.DBPath))
	return sqlite.New(db), nil
}

func (a *App) loadSitesFile() ([]domain.AdmissionRequest, error) {
	if a.cfg.SitesFile == "" {
		return nil, nil
	}
	f, err := sites.NewLoader(a.cfg.SitesFile).Load()
	if err != nil {
		return nil, err
	}
	return sites.Requests(f), nil
}

// Stores exposes the opened backend.
func (a *App) Stores() store.Stores { return a.stores }

// Metrics exposes the collectors fed by sweeps.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Admit registers one domain outside a sweep.
func (a *App) Admit(ctx context.Context, req domain.AdmissionRequest) (intake.Result, error) {
	return a.admitter.Admit(ctx, req, a.Now())
}

// Report runs the emitter on its own.
func (a *App) Report(ctx context.Context) (report.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.report(ctx)
}

func (a *App) report(ctx context.Context) (report.Result, error) {
	res, err := a.emitter.Run(ctx)
	a.metrics.ObserveReports(res.Generated, res.Archived, res.Failed)
	return res, err
}

// Close releases the store and the redis client.
func (a *App) Close() {
	if a.redisClient != nil {
		utils.CloseFunc("redis", a.redisClient.Close, a.logger)
	}
	utils.CloseFunc("store", a.stores.Close, a.logger)
}

// Ping checks the store and, when configured, redis.
func (a *App) Ping(ctx context.Context) error {
	var errs []error
	if a.stores.Ping != nil {
		if err := a.stores.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if a.redisStore != nil {
		if err := a.redisStore.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
