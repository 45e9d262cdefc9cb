// FilePath: internal/cache/cache.go

// Package cache keeps the most recent historical record per greenhouse in
// Redis so the dashboard's latest-value polling stays off Postgres. Cache
// failures are never fatal; a tripped breaker simply sends reads to the
// database until Redis recovers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/models"
)

const latestTTL = 24 * time.Hour

// LatestCache is a best-effort latest-reading cache.
type LatestCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// New connects the cache. Returns nil when no Redis host is configured;
// callers treat a nil cache as a permanent miss.
func New(cfg config.RedisConfig) *LatestCache {
	if cfg.Host == "" {
		nuts.L.Infof("[Cache] No redis host configured, latest-reading cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "latest-cache",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nuts.L.Warnf("[Cache] Breaker %s: %s -> %s", name, from, to)
		},
	})

	return &LatestCache{client: client, breaker: breaker}
}

func key(greenhouseID int64) string {
	return fmt.Sprintf("greenhub:latest:%d", greenhouseID)
}

// SetLatest stores the record as the greenhouse's most recent one. Best
// effort: failures are logged and swallowed.
func (c *LatestCache) SetLatest(ctx context.Context, record *models.HistoricalRecord) {
	if c == nil {
		return
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		return nil, c.client.Set(ctx, key(record.GreenhouseID), payload, latestTTL).Err()
	})
	if err != nil {
		nuts.L.Warnf("[Cache] Failed to store latest record for greenhouse %d: %v", record.GreenhouseID, err)
	}
}

// GetLatest returns the cached record, or (nil, false) on miss, breaker-open
// or any Redis failure.
func (c *LatestCache) GetLatest(ctx context.Context, greenhouseID int64) (*models.HistoricalRecord, bool) {
	if c == nil {
		return nil, false
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, key(greenhouseID)).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[Cache] Failed to read latest record for greenhouse %d: %v", greenhouseID, err)
		}
		return nil, false
	}

	record := &models.HistoricalRecord{}
	if err := json.Unmarshal(result.([]byte), record); err != nil {
		return nil, false
	}
	return record, true
}

// Close releases the Redis connection.
func (c *LatestCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
