package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
)

// ErrNotFound is returned when a requested sensor, data point or alert does
// not exist. The API layer maps it to a 404.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for sensors, readings and alerts.
// This allows us to mock the store for testing and to swap the Postgres
// backend for the in-memory one in dev mode.
type Store interface {
	// Sensor registry
	ListSensors(ctx context.Context) ([]models.Sensor, error)
	ListSensorsByMachine(ctx context.Context, machineID string) ([]models.Sensor, error)
	GetSensor(ctx context.Context, id string) (*models.Sensor, error)
	CreateSensor(ctx context.Context, sensor *models.Sensor) error
	UpdateSensor(ctx context.Context, sensor *models.Sensor) error
	DeleteSensor(ctx context.Context, id string) error

	// Append-only reading log
	InsertDataPoint(ctx context.Context, point *models.SensorDataPoint) error
	ListDataPoints(ctx context.Context, sensorID string, limit int) ([]models.SensorDataPoint, error)
	ListDataPointsInRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.SensorDataPoint, error)
	LatestDataPoint(ctx context.Context, sensorID string) (*models.SensorDataPoint, error)

	// Alert lifecycle
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	ListAlertsBySensor(ctx context.Context, sensorID string) ([]models.Alert, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// InsertAlertIfNoneActive atomically inserts the alert unless an active
	// alert with the same (sensorID, type) already exists. It reports whether
	// the insert happened.
	InsertAlertIfNoneActive(ctx context.Context, alert *models.Alert) (bool, error)
	AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error)

	Ping(ctx context.Context) error
	Close() error
}
