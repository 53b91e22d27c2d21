package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// MockStore is a mock implementation of the storage.Store interface
type MockStore struct {
	mock.Mock
}

// Ensure MockStore implements storage.Store
var _ storage.Store = (*MockStore)(nil)

func (m *MockStore) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Sensor), args.Error(1)
}

func (m *MockStore) ListSensorsByMachine(ctx context.Context, machineID string) ([]models.Sensor, error) {
	args := m.Called(ctx, machineID)
	return args.Get(0).([]models.Sensor), args.Error(1)
}

func (m *MockStore) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Sensor), args.Error(1)
}

func (m *MockStore) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	args := m.Called(ctx, sensor)
	return args.Error(0)
}

func (m *MockStore) UpdateSensor(ctx context.Context, sensor *models.Sensor) error {
	args := m.Called(ctx, sensor)
	return args.Error(0)
}

func (m *MockStore) DeleteSensor(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) InsertDataPoint(ctx context.Context, point *models.SensorDataPoint) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func (m *MockStore) ListDataPoints(ctx context.Context, sensorID string, limit int) ([]models.SensorDataPoint, error) {
	args := m.Called(ctx, sensorID, limit)
	return args.Get(0).([]models.SensorDataPoint), args.Error(1)
}

func (m *MockStore) ListDataPointsInRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.SensorDataPoint, error) {
	args := m.Called(ctx, sensorID, start, end)
	return args.Get(0).([]models.SensorDataPoint), args.Error(1)
}

func (m *MockStore) LatestDataPoint(ctx context.Context, sensorID string) (*models.SensorDataPoint, error) {
	args := m.Called(ctx, sensorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SensorDataPoint), args.Error(1)
}

func (m *MockStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockStore) ListAlertsBySensor(ctx context.Context, sensorID string) ([]models.Alert, error) {
	args := m.Called(ctx, sensorID)
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockStore) InsertAlertIfNoneActive(ctx context.Context, alert *models.Alert) (bool, error) {
	args := m.Called(ctx, alert)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	args := m.Called(ctx, id, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockStore) ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	args := m.Called(ctx, id, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
