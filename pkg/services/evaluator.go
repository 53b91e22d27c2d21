package services

import (
	"context"
	"errors"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// EvalOutcome classifies the result of a threshold evaluation
type EvalOutcome string

const (
	// EvalSensorUnknown means the reading references a sensor the registry
	// does not know. Ingestion still succeeds; evaluation is skipped.
	EvalSensorUnknown EvalOutcome = "sensor_unknown"
	// EvalNotCheckable means the sensor type never alerts
	EvalNotCheckable EvalOutcome = "not_checkable"
	// EvalWithinBounds means no configured threshold was exceeded
	EvalWithinBounds EvalOutcome = "within_bounds"
	// EvalBreached means a threshold was exceeded
	EvalBreached EvalOutcome = "breached"
)

// Evaluation is the decision for one reading. Severity and Threshold are
// set only when Outcome is EvalBreached.
type Evaluation struct {
	Outcome   EvalOutcome
	Severity  models.AlertSeverity
	Threshold float64
}

// Evaluator decides, per ingested reading, whether an alert condition
// exists. The check is a plain greater-than comparison against the current
// reading only: no hysteresis, no consecutive-sample requirement, no
// cool-down. A reading back below threshold never auto-resolves an alert.
type Evaluator struct {
	store storage.Store
}

// NewEvaluator creates a new threshold evaluator
func NewEvaluator(store storage.Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate looks up the owning sensor and compares the reading against its
// thresholds, critical first.
func (e *Evaluator) Evaluate(ctx context.Context, point *models.SensorDataPoint) (Evaluation, error) {
	sensor, err := e.store.GetSensor(ctx, point.SensorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Evaluation{Outcome: EvalSensorUnknown}, nil
		}
		return Evaluation{}, err
	}

	if !sensor.Type.ThresholdCheckable() {
		return Evaluation{Outcome: EvalNotCheckable}, nil
	}

	if sensor.CriticalThreshold != nil && point.Value > *sensor.CriticalThreshold {
		return Evaluation{
			Outcome:   EvalBreached,
			Severity:  models.AlertSeverityCritical,
			Threshold: *sensor.CriticalThreshold,
		}, nil
	}
	if sensor.WarningThreshold != nil && point.Value > *sensor.WarningThreshold {
		return Evaluation{
			Outcome:   EvalBreached,
			Severity:  models.AlertSeverityWarning,
			Threshold: *sensor.WarningThreshold,
		}, nil
	}

	return Evaluation{Outcome: EvalWithinBounds}, nil
}
