package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

func newIngestPipeline() (*IngestService, storage.Store) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	alerts := NewAlertService(store)
	return NewIngestService(store, evaluator, alerts, nil), store
}

func TestAppendValidation(t *testing.T) {
	service, _ := newIngestPipeline()
	ctx := context.Background()

	_, err := service.Append(ctx, &models.IngestRequest{Value: f(42)}, "http")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.Append(ctx, &models.IngestRequest{SensorID: "s1"}, "http")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAppendDefaultsTimestamp(t *testing.T) {
	service, _ := newIngestPipeline()

	before := time.Now().UTC()
	point, err := service.Append(context.Background(), &models.IngestRequest{
		SensorID: "unregistered",
		Value:    f(42),
	}, "http")
	require.NoError(t, err)

	assert.NotEmpty(t, point.ID)
	assert.False(t, point.Timestamp.Before(before))
	assert.False(t, point.Timestamp.After(time.Now().UTC()))
}

func TestAppendUnregisteredSensorStoredWithoutAlert(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()

	// No sensor registered; the reading is kept but evaluation is skipped
	point, err := service.Append(ctx, &models.IngestRequest{SensorID: "ghost", Value: f(9999)}, "http")
	require.NoError(t, err)
	require.NotNil(t, point)

	stored, err := store.ListDataPoints(ctx, "ghost", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	alerts, err := store.ListAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAppendRaisesAlertOnBreach(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	_, err := service.Append(ctx, &models.IngestRequest{SensorID: sensor.ID, Value: f(90)}, "http")
	require.NoError(t, err)

	alerts, err := store.ListActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertSeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Value 90 exceeds critical threshold 80", alerts[0].Message)
	assert.Equal(t, 90.0, alerts[0].Value)
	assert.Equal(t, 80.0, alerts[0].Threshold)
}

func TestAppendRepeatedBreachesDeduplicated(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	for i := 0; i < 5; i++ {
		_, err := service.Append(ctx, &models.IngestRequest{SensorID: sensor.ID, Value: f(90)}, "http")
		require.NoError(t, err)
	}

	alerts, err := store.ListActiveAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	// All five readings landed even though four alerts were suppressed
	points, err := store.ListDataPoints(ctx, sensor.ID, 10)
	require.NoError(t, err)
	assert.Len(t, points, 5)
}

func TestAppendWithinBoundsNoAlert(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	_, err := service.Append(ctx, &models.IngestRequest{SensorID: sensor.ID, Value: f(40)}, "http")
	require.NoError(t, err)

	alerts, err := store.ListAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func rawItems(t *testing.T, items ...interface{}) []json.RawMessage {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		require.NoError(t, err)
		raw = append(raw, data)
	}
	return raw
}

func TestBulkAppendPartialFailure(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	items := rawItems(t,
		map[string]interface{}{"sensorId": sensor.ID, "value": 40.0},
		map[string]interface{}{"sensorId": sensor.ID}, // missing value
		map[string]interface{}{"sensorId": sensor.ID, "value": 45.0},
	)

	resp := service.BulkAppend(ctx, items, "http")
	assert.Equal(t, 3, resp.Processed)
	require.Len(t, resp.Results, 3)

	assert.NotNil(t, resp.Results[0].Point)
	assert.Empty(t, resp.Results[0].Error)

	assert.Nil(t, resp.Results[1].Point)
	assert.NotEmpty(t, resp.Results[1].Error)
	require.NotEmpty(t, resp.Results[1].Item)

	assert.NotNil(t, resp.Results[2].Point)

	// Only the two valid readings were stored
	points, err := store.ListDataPoints(ctx, sensor.ID, 10)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestBulkAppendNonNumericValue(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	// Item 2 carries a string value and does not even decode; the batch
	// still reports every item and keeps the valid readings.
	items := rawItems(t,
		map[string]interface{}{"sensorId": sensor.ID, "value": 40.0},
		map[string]interface{}{"sensorId": sensor.ID, "value": "not-a-number"},
		map[string]interface{}{"sensorId": sensor.ID, "value": 45.0},
	)

	resp := service.BulkAppend(ctx, items, "http")
	assert.Equal(t, 3, resp.Processed)
	require.Len(t, resp.Results, 3)

	assert.NotNil(t, resp.Results[0].Point)

	assert.Nil(t, resp.Results[1].Point)
	assert.Contains(t, resp.Results[1].Error, "invalid reading")
	assert.JSONEq(t, `{"sensorId":"`+sensor.ID+`","value":"not-a-number"}`, string(resp.Results[1].Item))

	assert.NotNil(t, resp.Results[2].Point)

	points, err := store.ListDataPoints(ctx, sensor.ID, 10)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestQueryDefaultLimit(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < DefaultQueryLimit+20; i++ {
		require.NoError(t, store.InsertDataPoint(ctx, &models.SensorDataPoint{
			ID:        uuid.New().String(),
			SensorID:  "s1",
			Value:     float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	points, err := service.Query(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, points, DefaultQueryLimit)

	points, err = service.Query(ctx, "s1", 5)
	require.NoError(t, err)
	assert.Len(t, points, 5)
}

func TestLatestWithoutCacheHitsStore(t *testing.T) {
	service, store := newIngestPipeline()
	ctx := context.Background()

	_, err := service.Latest(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.InsertDataPoint(ctx, &models.SensorDataPoint{
		ID:        "p1",
		SensorID:  "s1",
		Value:     42,
		Timestamp: time.Now().UTC(),
	}))

	latest, err := service.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, latest.Value)
}
