package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSweepLock_SingleHolder(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	first := NewSweepLock(client, time.Minute)
	second := NewSweepLock(client, time.Minute)

	require.NoError(t, first.Acquire(ctx))
	assert.ErrorIs(t, second.Acquire(ctx), ErrLockNotAcquired)

	// only the holder may release
	assert.ErrorIs(t, second.Release(ctx), ErrLockNotHeld)
	require.NoError(t, first.Release(ctx))

	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestSweepLock_Expires(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	lock := NewSweepLock(client, time.Minute)
	require.NoError(t, lock.Acquire(ctx))

	mr.FastForward(2 * time.Minute)

	other := NewSweepLock(client, time.Minute)
	require.NoError(t, other.Acquire(ctx))
	assert.ErrorIs(t, lock.Extend(ctx), ErrLockNotHeld)
}

func TestSweepLock_Extend(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	lock := NewSweepLock(client, time.Minute)
	require.NoError(t, lock.Acquire(ctx))

	mr.FastForward(50 * time.Second)
	require.NoError(t, lock.Extend(ctx))
	mr.FastForward(50 * time.Second)

	assert.True(t, mr.Exists(KeySweepLock))
	assert.Equal(t, lock.Token(), mustGet(t, mr, KeySweepLock))
}

func TestSweepLock_DefaultTTL(t *testing.T) {
	client, mr := newTestClient(t)
	lock := NewSweepLock(client, 0)
	require.NoError(t, lock.Acquire(context.Background()))
	assert.Equal(t, DefaultLockTTL, mr.TTL(KeySweepLock))
}

func TestStore_LastSweep(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	s := NewStore(client)

	_, err := s.LastSweep(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := domain.SweepSummary{ID: 7, StartedAt: started, FinishedAt: started.Add(4 * time.Second), Up: 3, Down: 1}
	require.NoError(t, s.SaveLastSweep(ctx, in))

	out, err := s.LastSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, 4, out.Probed())
	assert.Equal(t, 4*time.Second, out.Duration())
	require.NoError(t, s.Ping(ctx))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
