package stats

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTotalKey   = "helpdesk:autoclose:total_closed"
	redisLastRunKey = "helpdesk:autoclose:last_run"
)

// RedisStats stores counters in Redis; INCRBY keeps concurrent sweeps from losing updates.
type RedisStats struct {
	client redis.Cmdable
}

func NewRedisStats(client redis.Cmdable) *RedisStats {
	return &RedisStats{client: client}
}

func (s *RedisStats) AddClosed(ctx context.Context, n int64) (int64, error) {
	return s.client.IncrBy(ctx, redisTotalKey, n).Result()
}

func (s *RedisStats) MarkRun(ctx context.Context, at time.Time) error {
	return s.client.Set(ctx, redisLastRunKey, at.UTC().Format(time.RFC3339), 0).Err()
}

func (s *RedisStats) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	total, err := s.client.Get(ctx, redisTotalKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, err
	}
	snap.TotalClosed = total

	raw, err := s.client.Get(ctx, redisLastRunKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return snap, err
	default:
		if at, perr := time.Parse(time.RFC3339, raw); perr == nil {
			snap.LastRun = &at
		}
	}
	return snap, nil
}
