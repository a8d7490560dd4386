// Package cache holds short-lived copies of expensive read models.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/burncare/apiserver/types"
	"github.com/redis/go-redis/v9"
)

const (
	keyAdminStats   = "burncare:stats:admin"
	defaultStatsTTL = 30 * time.Second
)

// StatsCache stores the admin statistics in Redis under a fixed key.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCacheFromURL connects to Redis and verifies the connection.
func NewStatsCacheFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*StatsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStatsCache(client, ttl), nil
}

// NewStatsCache wraps an existing client. A non-positive ttl uses the default.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) Get(ctx context.Context) (types.AdminStats, bool, error) {
	data, err := c.client.Get(ctx, keyAdminStats).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.AdminStats{}, false, nil
	}
	if err != nil {
		return types.AdminStats{}, false, err
	}

	var stats types.AdminStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return types.AdminStats{}, false, fmt.Errorf("decode cached stats: %w", err)
	}
	return stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, stats types.AdminStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyAdminStats, data, c.ttl).Err()
}

// Invalidate drops the cached statistics so the next read recomputes them.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, keyAdminStats).Err()
}

func (c *StatsCache) Close() error {
	return c.client.Close()
}
