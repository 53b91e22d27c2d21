package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// ErrValidation marks request payloads rejected before any write. The API
// layer maps it to a 400.
var ErrValidation = errors.New("validation failed")

// SensorService manages the sensor registry
type SensorService struct {
	store storage.Store
}

// NewSensorService creates a new sensor service
func NewSensorService(store storage.Store) *SensorService {
	return &SensorService{store: store}
}

// ListSensors returns all registered sensors
func (s *SensorService) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	return s.store.ListSensors(ctx)
}

// ListSensorsByMachine returns the sensors bound to one machine
func (s *SensorService) ListSensorsByMachine(ctx context.Context, machineID string) ([]models.Sensor, error) {
	return s.store.ListSensorsByMachine(ctx, machineID)
}

// GetSensor returns a sensor by id
func (s *SensorService) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	return s.store.GetSensor(ctx, id)
}

// CreateSensor registers a new sensor. Machine id and a valid sensor type
// are required; thresholds are optional.
func (s *SensorService) CreateSensor(ctx context.Context, req *models.CreateSensorRequest) (*models.Sensor, error) {
	if req.MachineID == "" {
		return nil, fmt.Errorf("%w: machineId is required", ErrValidation)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor type %q", ErrValidation, req.Type)
	}

	now := time.Now().UTC()
	sensor := &models.Sensor{
		ID:                uuid.New().String(),
		MachineID:         req.MachineID,
		Type:              req.Type,
		Name:              req.Name,
		WarningThreshold:  req.WarningThreshold,
		CriticalThreshold: req.CriticalThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateSensor(ctx, sensor); err != nil {
		return nil, fmt.Errorf("failed to create sensor: %w", err)
	}
	return sensor, nil
}

// UpdateSensor applies a partial patch to a sensor. Threshold consistency
// (warning <= critical) is not enforced, matching the registry's contract.
func (s *SensorService) UpdateSensor(ctx context.Context, id string, req *models.UpdateSensorRequest) (*models.Sensor, error) {
	sensor, err := s.store.GetSensor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.MachineID != nil {
		sensor.MachineID = *req.MachineID
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown sensor type %q", ErrValidation, *req.Type)
		}
		sensor.Type = *req.Type
	}
	if req.Name != nil {
		sensor.Name = *req.Name
	}
	if req.WarningThreshold != nil {
		sensor.WarningThreshold = req.WarningThreshold
	}
	if req.CriticalThreshold != nil {
		sensor.CriticalThreshold = req.CriticalThreshold
	}
	sensor.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSensor(ctx, sensor); err != nil {
		return nil, err
	}
	return sensor, nil
}

// DeleteSensor removes a sensor unconditionally. Existing data points and
// alerts referencing it are left in place.
func (s *SensorService) DeleteSensor(ctx context.Context, id string) error {
	return s.store.DeleteSensor(ctx, id)
}
