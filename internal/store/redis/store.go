// Package redis holds the Redis-backed coordination state: the sweep lock
// and the last sweep summary shared between processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

// DefaultSummaryTTL bounds how long a stale summary stays visible.
const DefaultSummaryTTL = 48 * time.Hour

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveLastSweep publishes the summary of the sweep that just finished.
func (s *Store) SaveLastSweep(ctx context.Context, summary domain.SweepSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep summary: %w", err)
	}
	if err := s.client.Set(ctx, KeyLastSweep, data, DefaultSummaryTTL).Err(); err != nil {
		return fmt.Errorf("failed to save sweep summary: %w", err)
	}
	return nil
}

// LastSweep returns the latest published summary, or domain.ErrNotFound.
func (s *Store) LastSweep(ctx context.Context) (*domain.SweepSummary, error) {
	data, err := s.client.Get(ctx, KeyLastSweep).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sweep summary: %w", err)
	}

	var summary domain.SweepSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sweep summary: %w", err)
	}
	return &summary, nil
}
