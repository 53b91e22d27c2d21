package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewCacheWithClient(client, time.Minute)
}

func TestCacheLatestRoundTrip(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	point := &models.SensorDataPoint{
		ID:        "p1",
		SensorID:  "s1",
		Value:     42.5,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Status:    "ok",
	}
	require.NoError(t, c.StoreLatest(ctx, point))

	got, err := c.GetLatest(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42.5, got.Value)
	assert.True(t, got.Timestamp.Equal(point.Timestamp))
}

func TestCacheLatestMiss(t *testing.T) {
	_, c := setupCache(t)

	got, err := c.GetLatest(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheLatestExpires(t *testing.T) {
	mr, c := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.StoreLatest(ctx, &models.SensorDataPoint{ID: "p1", SensorID: "s1", Value: 1}))

	mr.FastForward(2 * time.Minute)

	got, err := c.GetLatest(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheSummaryRoundTrip(t *testing.T) {
	_, c := setupCache(t)
	ctx := context.Background()

	summary := &models.SensorSummary{
		Average:    20.33,
		Min:        10,
		Max:        31,
		Latest:     31,
		Trend:      models.TrendStable,
		DataPoints: []models.SensorDataPoint{},
	}
	require.NoError(t, c.StoreSummary(ctx, "s1", 24, summary))

	got, err := c.GetSummary(ctx, "s1", 24)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 20.33, got.Average)
	assert.Equal(t, models.TrendStable, got.Trend)

	// A different window is a different key
	miss, err := c.GetSummary(ctx, "s1", 6)
	require.NoError(t, err)
	assert.Nil(t, miss)
}
