package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mfgops/sensor-alert-gateway/pkg/config"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
)

// Cache keeps hot read-path data (latest reading per sensor, recent
// analytics summaries) in Redis. Entries expire on a short TTL rather than
// being invalidated on write, so a summary can lag ingestion by at most the
// TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis and verifies the connection
func NewCache(cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// NewCacheWithClient wraps an existing Redis client. Used by tests.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func latestKey(sensorID string) string {
	return fmt.Sprintf("latest:%s", sensorID)
}

func summaryKey(sensorID string, windowHours int) string {
	return fmt.Sprintf("summary:%s:%d", sensorID, windowHours)
}

// StoreLatest caches the newest reading for a sensor
func (c *Cache) StoreLatest(ctx context.Context, point *models.SensorDataPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to marshal data point: %w", err)
	}
	return c.client.Set(ctx, latestKey(point.SensorID), data, c.ttl).Err()
}

// GetLatest returns the cached newest reading, or (nil, nil) on a miss
func (c *Cache) GetLatest(ctx context.Context, sensorID string) (*models.SensorDataPoint, error) {
	data, err := c.client.Get(ctx, latestKey(sensorID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached latest: %w", err)
	}

	var point models.SensorDataPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached data point: %w", err)
	}
	return &point, nil
}

// StoreSummary caches an analytics summary for one (sensor, window) pair
func (c *Cache) StoreSummary(ctx context.Context, sensorID string, windowHours int, summary *models.SensorSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return c.client.Set(ctx, summaryKey(sensorID, windowHours), data, c.ttl).Err()
}

// GetSummary returns the cached summary, or (nil, nil) on a miss
func (c *Cache) GetSummary(ctx context.Context, sensorID string, windowHours int) (*models.SensorSummary, error) {
	data, err := c.client.Get(ctx, summaryKey(sensorID, windowHours)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached summary: %w", err)
	}

	var summary models.SensorSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return &summary, nil
}

// Ping checks Redis connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
