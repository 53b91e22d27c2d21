package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/cache"
	"github.com/mfgops/sensor-alert-gateway/pkg/metrics"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// DefaultQueryLimit is applied when a history query does not specify one
const DefaultQueryLimit = 100

// IngestService accepts readings into the append-only log and runs the
// threshold evaluation pipeline on each one. Evaluation happens
// synchronously before Append returns, so ingest latency includes the
// threshold check and any alert write.
type IngestService struct {
	store     storage.Store
	evaluator *Evaluator
	alerts    *AlertService
	cache     *cache.Cache // nil disables caching
}

// NewIngestService creates a new ingest service. cache may be nil.
func NewIngestService(store storage.Store, evaluator *Evaluator, alerts *AlertService, c *cache.Cache) *IngestService {
	return &IngestService{
		store:     store,
		evaluator: evaluator,
		alerts:    alerts,
		cache:     c,
	}
}

// Append validates and persists one reading, then evaluates thresholds.
// Alerting failures never fail the ingestion; they are logged and the
// stored point is returned.
func (s *IngestService) Append(ctx context.Context, req *models.IngestRequest, source string) (*models.SensorDataPoint, error) {
	start := time.Now()

	if req.SensorID == "" {
		metrics.IngestFailures.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("%w: sensorId is required", ErrValidation)
	}
	if req.Value == nil {
		metrics.IngestFailures.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("%w: value is required and must be numeric", ErrValidation)
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	point := &models.SensorDataPoint{
		ID:        uuid.New().String(),
		SensorID:  req.SensorID,
		Value:     *req.Value,
		Timestamp: ts,
		Status:    req.Status,
	}

	if err := s.store.InsertDataPoint(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to store data point: %w", err)
	}
	metrics.ReadingsIngested.WithLabelValues(source).Inc()

	if s.cache != nil {
		if err := s.cache.StoreLatest(ctx, point); err != nil {
			logrus.Warnf("Failed to cache latest reading for sensor %s: %v", point.SensorID, err)
		}
	}

	s.evaluateAndAlert(ctx, point)

	metrics.IngestLatency.Observe(time.Since(start).Seconds())
	return point, nil
}

// evaluateAndAlert runs the threshold check and, on a breach, the
// dedup-and-create alert path. Errors are swallowed after logging so that
// ingestion does not fail merely because alerting could not proceed.
func (s *IngestService) evaluateAndAlert(ctx context.Context, point *models.SensorDataPoint) {
	eval, err := s.evaluator.Evaluate(ctx, point)
	if err != nil {
		logrus.Errorf("Threshold evaluation failed for sensor %s: %v", point.SensorID, err)
		return
	}

	switch eval.Outcome {
	case EvalSensorUnknown:
		logrus.Debugf("Skipping evaluation for unknown sensor %s", point.SensorID)
		return
	case EvalNotCheckable, EvalWithinBounds:
		return
	}

	req := &models.CreateAlertRequest{
		SensorID:  point.SensorID,
		Type:      models.AlertTypeThresholdExceeded,
		Severity:  eval.Severity,
		Message:   fmt.Sprintf("Value %g exceeds %s threshold %g", point.Value, eval.Severity, eval.Threshold),
		Value:     point.Value,
		Threshold: eval.Threshold,
	}
	if _, _, err := s.alerts.CreateAlert(ctx, req); err != nil {
		logrus.Errorf("Failed to create alert for sensor %s: %v", point.SensorID, err)
	}
}

// BulkAppend ingests a batch of readings, collecting a per-item outcome.
// Items arrive raw and are decoded one at a time, so an item that does not
// even parse (a string where the value belongs, say) fails alone; the rest
// of the batch proceeds. There is no cross-item transaction.
func (s *IngestService) BulkAppend(ctx context.Context, items []json.RawMessage, source string) *models.BulkIngestResponse {
	resp := &models.BulkIngestResponse{
		Processed: len(items),
		Results:   make([]models.BulkItemResult, 0, len(items)),
	}

	for _, raw := range items {
		var req models.IngestRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			metrics.IngestFailures.WithLabelValues(source).Inc()
			resp.Results = append(resp.Results, models.BulkItemResult{
				Error: fmt.Sprintf("invalid reading: %v", err),
				Item:  raw,
			})
			continue
		}

		point, err := s.Append(ctx, &req, source)
		if err != nil {
			resp.Results = append(resp.Results, models.BulkItemResult{
				Error: err.Error(),
				Item:  raw,
			})
			continue
		}
		resp.Results = append(resp.Results, models.BulkItemResult{Point: point})
	}
	return resp
}

// Query returns the most recent limit readings for a sensor, newest first.
// A non-positive limit falls back to DefaultQueryLimit.
func (s *IngestService) Query(ctx context.Context, sensorID string, limit int) ([]models.SensorDataPoint, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	return s.store.ListDataPoints(ctx, sensorID, limit)
}

// QueryRange returns readings with start <= ts <= end, newest first.
// Both bounds are inclusive.
func (s *IngestService) QueryRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.SensorDataPoint, error) {
	return s.store.ListDataPointsInRange(ctx, sensorID, start, end)
}

// Latest returns the newest reading for a sensor, consulting the cache
// first when one is configured.
func (s *IngestService) Latest(ctx context.Context, sensorID string) (*models.SensorDataPoint, error) {
	if s.cache != nil {
		point, err := s.cache.GetLatest(ctx, sensorID)
		if err != nil {
			logrus.Warnf("Cache lookup failed for sensor %s: %v", sensorID, err)
		} else if point != nil {
			return point, nil
		}
	}
	return s.store.LatestDataPoint(ctx, sensorID)
}
