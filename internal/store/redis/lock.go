package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL is used when the configured TTL is not positive.
const DefaultLockTTL = 15 * time.Minute

var (
	// ErrLockNotAcquired means another process is sweeping.
	ErrLockNotAcquired = errors.New("sweep lock held by another process")
	// ErrLockNotHeld means the lock expired or was taken over.
	ErrLockNotHeld = errors.New("sweep lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// SweepLock is a single-holder lease on the sweep. Each instance carries its
// own token so only the holder can release or extend it.
type SweepLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewSweepLock(client *redis.Client, ttl time.Duration) *SweepLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SweepLock{
		client: client,
		key:    KeySweepLock,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire takes the lock or returns ErrLockNotAcquired without waiting.
func (l *SweepLock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	return nil
}

func (l *SweepLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend pushes the expiry out by another TTL.
func (l *SweepLock) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend sweep lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *SweepLock) Token() string { return l.token }
