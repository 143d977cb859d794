// Package redis dials the optional Redis instance that coordinates sweeps.
//
// A sweep is a short batch job, so the dial is bounded by a handful of
// attempts instead of waiting for Redis to come back.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no attempt reached Redis.
var ErrUnavailable = errors.New("redis unavailable")

// LockOptions describes the Redis instance holding the sweep lock.
type LockOptions struct {
	Addr     string
	User     string
	Password string
	DB       int

	// Timeout bounds each dial, read, write and PING.
	Timeout time.Duration
	// Attempts is the number of PINGs tried before giving up.
	Attempts int
	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	return o
}

// DialLock connects the client used by the sweep lock. The client is closed
// when every attempt fails.
func DialLock(ctx context.Context, opts LockOptions, log logger.Logger) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: no address configured", ErrUnavailable)
	}
	opts = opts.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		// lock, extend, release and the summary write never overlap much
		PoolSize:   4,
		MaxRetries: -1,
	})

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if lastErr = ping(ctx, client, opts.Timeout); lastErr == nil {
			log.Debug("sweep lock backend reachable",
				logger.String("addr", opts.Addr),
				logger.Int("attempt", attempt))
			return client, nil
		}
		if ctx.Err() != nil || attempt == opts.Attempts {
			break
		}
		log.Warn("sweep lock backend not answering",
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Int("attempts", opts.Attempts),
			logger.Error(lastErr))

		select {
		case <-ctx.Done():
		case <-time.After(opts.Backoff):
		}
	}

	_ = client.Close()
	if ctx.Err() != nil {
		lastErr = ctx.Err()
	}
	return nil, fmt.Errorf("%w at %s after %d attempt(s): %w", ErrUnavailable, opts.Addr, opts.Attempts, lastErr)
}

func ping(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
