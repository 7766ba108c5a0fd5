package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/movie-rental/internal/domain"
)

const dashboardCacheKey = "movierental:dashboard"

type redisStatsCache struct {
	client *redis.Client
}

func NewRedisStatsCache(client *redis.Client) StatsCache {
	return &redisStatsCache{client: client}
}

func (c *redisStatsCache) GetDashboard(ctx context.Context) (*domain.DashboardSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, dashboardCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get dashboard")
	}

	var stats domain.DashboardSnapshot
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A value we cannot decode is treated as a miss and overwritten later.
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *redisStatsCache) SetDashboard(ctx context.Context, stats *domain.DashboardSnapshot, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "encode dashboard")
	}
	return errors.Wrap(c.client.Set(ctx, dashboardCacheKey, raw, ttl).Err(), "set dashboard")
}

func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Del(ctx, dashboardCacheKey).Err(), "invalidate dashboard")
}

// NoopStatsCache is used when no Redis is configured.
type NoopStatsCache struct{}

func (NoopStatsCache) GetDashboard(context.Context) (*domain.DashboardSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopStatsCache) SetDashboard(context.Context, *domain.DashboardSnapshot, time.Duration) error {
	return nil
}

func (NoopStatsCache) Invalidate(context.Context) error { return nil }
