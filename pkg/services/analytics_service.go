package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/cache"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// AnalyticsService computes windowed summaries over the reading log
type AnalyticsService struct {
	store storage.Store
	cache *cache.Cache // nil disables caching
}

// NewAnalyticsService creates a new analytics service. cache may be nil.
func NewAnalyticsService(store storage.Store, c *cache.Cache) *AnalyticsService {
	return &AnalyticsService{store: store, cache: c}
}

// Summarize computes average/min/max/latest/trend over the readings in
// [now - windowHours, now]. An empty window yields a zeroed summary with a
// stable trend, not an error.
func (s *AnalyticsService) Summarize(ctx context.Context, sensorID string, windowHours int) (*models.SensorSummary, error) {
	if s.cache != nil {
		summary, err := s.cache.GetSummary(ctx, sensorID, windowHours)
		if err != nil {
			logrus.Warnf("Summary cache lookup failed for sensor %s: %v", sensorID, err)
		} else if summary != nil {
			return summary, nil
		}
	}

	now := time.Now().UTC()
	points, err := s.store.ListDataPointsInRange(ctx, sensorID, now.Add(-time.Duration(windowHours)*time.Hour), now)
	if err != nil {
		return nil, err
	}

	summary := summarize(points)

	if s.cache != nil {
		if err := s.cache.StoreSummary(ctx, sensorID, windowHours, summary); err != nil {
			logrus.Warnf("Failed to cache summary for sensor %s: %v", sensorID, err)
		}
	}
	return summary, nil
}

// summarize reduces a newest-first point list to a summary.
//
// The trend split feeds the newest-first list straight into halves: the
// "first half" holds the chronologically later readings. The comparison and
// its labels are kept exactly as the system this gateway replaced computed
// them, so the two report identical trends; read "increasing" as "the older
// half averages at least 5% above the newer half".
func summarize(points []models.SensorDataPoint) *models.SensorSummary {
	if len(points) == 0 {
		return &models.SensorSummary{
			Trend:      models.TrendStable,
			DataPoints: []models.SensorDataPoint{},
		}
	}

	sum := 0.0
	min := points[0].Value
	max := points[0].Value
	for _, p := range points {
		sum += p.Value
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
	}

	return &models.SensorSummary{
		Average:    round2(sum / float64(len(points))),
		Min:        min,
		Max:        max,
		Latest:     points[0].Value,
		Trend:      trend(points),
		DataPoints: points,
	}
}

// trend splits the list at its midpoint and compares the half averages with
// a 5% dead band.
func trend(points []models.SensorDataPoint) string {
	if len(points) < 2 {
		return models.TrendStable
	}

	mid := len(points) / 2
	firstAvg := average(points[:mid])
	secondAvg := average(points[mid:])

	switch {
	case secondAvg > firstAvg*1.05:
		return models.TrendIncreasing
	case secondAvg < firstAvg*0.95:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

func average(points []models.SensorDataPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
