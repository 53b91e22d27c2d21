package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

func registerSensor(t *testing.T, store storage.Store, sensorType models.SensorType, warning, critical *float64) *models.Sensor {
	t.Helper()
	now := time.Now().UTC()
	sensor := &models.Sensor{
		ID:                uuid.New().String(),
		MachineID:         "machine-1",
		Type:              sensorType,
		Name:              "test sensor",
		WarningThreshold:  warning,
		CriticalThreshold: critical,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, store.CreateSensor(context.Background(), sensor))
	return sensor
}

func f(v float64) *float64 { return &v }

func TestEvaluateThresholdOrdering(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	sensor := registerSensor(t, store, models.SensorTypeTemperature, f(50), f(80))

	tests := []struct {
		name     string
		value    float64
		outcome  EvalOutcome
		severity models.AlertSeverity
	}{
		{name: "above critical", value: 90, outcome: EvalBreached, severity: models.AlertSeverityCritical},
		{name: "between warning and critical", value: 60, outcome: EvalBreached, severity: models.AlertSeverityWarning},
		{name: "below warning", value: 40, outcome: EvalWithinBounds},
		{name: "exactly at warning is not a breach", value: 50, outcome: EvalWithinBounds},
		{name: "exactly at critical falls to warning", value: 80, outcome: EvalBreached, severity: models.AlertSeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{
				SensorID: sensor.ID,
				Value:    tt.value,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, eval.Outcome)
			if tt.outcome == EvalBreached {
				assert.Equal(t, tt.severity, eval.Severity)
			}
		})
	}
}

func TestEvaluateThresholdValueRecorded(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	sensor := registerSensor(t, store, models.SensorTypePressure, f(50), f(80))

	eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: sensor.ID, Value: 90})
	require.NoError(t, err)
	assert.Equal(t, 80.0, eval.Threshold)

	eval, err = evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: sensor.ID, Value: 60})
	require.NoError(t, err)
	assert.Equal(t, 50.0, eval.Threshold)
}

func TestEvaluateNoThresholdsNeverBreaches(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	sensor := registerSensor(t, store, models.SensorTypeTemperature, nil, nil)

	for _, value := range []float64{0, 100, 1e9} {
		eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: sensor.ID, Value: value})
		require.NoError(t, err)
		assert.Equal(t, EvalWithinBounds, eval.Outcome)
	}
}

func TestEvaluateOtherTypeNotCheckable(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	sensor := registerSensor(t, store, models.SensorTypeOther, f(50), f(80))

	eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: sensor.ID, Value: 1000})
	require.NoError(t, err)
	assert.Equal(t, EvalNotCheckable, eval.Outcome)
}

func TestEvaluateUnknownSensorSkips(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)

	eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: "ghost", Value: 1000})
	require.NoError(t, err)
	assert.Equal(t, EvalSensorUnknown, eval.Outcome)
}

func TestEvaluateWarningOnlySensor(t *testing.T) {
	store := storage.NewMemoryStore()
	evaluator := NewEvaluator(store)
	sensor := registerSensor(t, store, models.SensorTypeVibration, f(50), nil)

	eval, err := evaluator.Evaluate(context.Background(), &models.SensorDataPoint{SensorID: sensor.ID, Value: 90})
	require.NoError(t, err)
	assert.Equal(t, EvalBreached, eval.Outcome)
	assert.Equal(t, models.AlertSeverityWarning, eval.Severity)
}
