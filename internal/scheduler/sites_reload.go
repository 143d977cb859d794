package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/checkit/internal/domain"
	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/sources/sites"
)

// SitesReloader keeps the desired site list in memory, reloading it on a
// ticker, when the file changes on disk, and on demand.
type SitesReloader struct {
	loader        *sites.Loader
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu       sync.RWMutex
	requests []domain.AdmissionRequest
}

func NewSitesReloader(sitesFile string, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *SitesReloader {
	return &SitesReloader{
		loader:        sites.NewLoader(sitesFile),
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the file once, failing if it cannot be read, then watches it.
func (sr *SitesReloader) Start(ctx context.Context) error {
	if err := sr.Reload(); err != nil {
		return fmt.Errorf("initial sites load failed: %w", err)
	}

	// editors replace files, so watch the directory and filter by name
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		sr.logger.Warn("file watching unavailable, relying on the reload interval", logger.Error(err))
	} else if err := watcher.Add(filepath.Dir(sr.loader.Path())); err != nil {
		sr.logger.Warn("cannot watch sites directory", logger.Error(err))
		_ = watcher.Close()
		watcher = nil
	}

	var events chan fsnotify.Event
	var errs chan error
	if watcher != nil {
		events, errs = watcher.Events, watcher.Errors
	}
	target := filepath.Clean(sr.loader.Path())

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		if watcher != nil {
			defer watcher.Close()
		}
		for {
			select {
			case <-ticker.C:
				sr.reload("interval")
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					sr.reload("file changed")
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				sr.logger.Warn("sites watcher error", logger.Error(err))
			case <-sr.manualTrigger:
				sr.reload("manual")
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (sr *SitesReloader) Stop() {
	close(sr.stopCh)
}

func (sr *SitesReloader) reload(reason string) {
	if err := sr.Reload(); err != nil {
		// keep serving the last good list
		sr.logger.Error("failed to reload sites", logger.String("reason", reason), logger.Error(err))
	}
}

// Reload reads the file and swaps in the new list.
func (sr *SitesReloader) Reload() error {
	f, err := sr.loader.Load()
	if err != nil {
		return err
	}
	reqs := sites.Requests(f)

	sr.mu.Lock()
	sr.requests = reqs
	sr.mu.Unlock()

	sr.logger.Info("loaded sites", logger.String("file", sr.loader.Path()), logger.Int("count", len(reqs)))
	return nil
}

// Current returns a copy of the last loaded list.
func (sr *SitesReloader) Current() []domain.AdmissionRequest {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	out := make([]domain.AdmissionRequest, len(sr.requests))
	copy(out, sr.requests)
	return out
}
