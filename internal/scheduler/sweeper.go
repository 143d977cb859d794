package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/logger"
)

// DefaultSweepInterval is used when the configured interval is not positive.
const DefaultSweepInterval = 10 * time.Minute

// SweepFunc runs one sweep. The caller serialises it with any other writer.
type SweepFunc func(ctx context.Context) error

// Sweeper triggers sweeps on a fixed cadence and on demand.
type Sweeper struct {
	run           SweepFunc
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
	done          chan struct{}
}

func NewSweeper(run SweepFunc, log logger.Logger, interval time.Duration, manualTrigger chan struct{}) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		run:           run,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		done:          make(chan struct{}),
	}
}

// Start runs a sweep immediately, then keeps sweeping in the background.
func (s *Sweeper) Start(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		s.logger.Warn("initial sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.manualTrigger:
				s.logger.Info("manual sweep triggered")
				s.sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.run(ctx); err != nil {
		s.logger.Error("sweep failed", logger.Error(err))
	}
}

// Stop ends the loop and waits for an in-flight sweep to return.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.done
}
