package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/metrics"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// AlertService owns the alert lifecycle: creation with dedup, acknowledge,
// resolve. At most one active alert exists per (sensor, type) pair.
type AlertService struct {
	store storage.Store
}

// NewAlertService creates a new alert service
func NewAlertService(store storage.Store) *AlertService {
	return &AlertService{store: store}
}

// ListAlerts returns all alerts, newest first
func (s *AlertService) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.store.ListAlerts(ctx)
}

// ListActiveAlerts returns all unresolved alerts, newest first
func (s *AlertService) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.store.ListActiveAlerts(ctx)
}

// ListAlertsBySensor returns the alerts raised for one sensor, newest first
func (s *AlertService) ListAlertsBySensor(ctx context.Context, sensorID string) ([]models.Alert, error) {
	return s.store.ListAlertsBySensor(ctx, sensorID)
}

// GetAlert returns an alert by id
func (s *AlertService) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return s.store.GetAlert(ctx, id)
}

// CreateAlert runs the dedup-and-create path. If an active alert with the
// same (sensor, type) already exists, the condition is dropped silently:
// no escalation, no duplicate record. The returned bool reports whether a
// new alert was created.
func (s *AlertService) CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.Alert, bool, error) {
	if req.SensorID == "" {
		return nil, false, fmt.Errorf("%w: sensorId is required", ErrValidation)
	}
	if req.Type == "" {
		req.Type = models.AlertTypeThresholdExceeded
	}

	alert := &models.Alert{
		ID:        uuid.New().String(),
		SensorID:  req.SensorID,
		Type:      req.Type,
		Severity:  req.Severity,
		Message:   req.Message,
		Value:     req.Value,
		Threshold: req.Threshold,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.InsertAlertIfNoneActive(ctx, alert)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create alert: %w", err)
	}
	if !created {
		metrics.AlertsDeduplicated.Inc()
		logrus.Debugf("Alert for sensor %s (%s) suppressed: active alert already exists", req.SensorID, req.Type)
		return nil, false, nil
	}

	metrics.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()
	logrus.Infof("Raised %s alert %s for sensor %s: %s", alert.Severity, alert.ID, alert.SensorID, alert.Message)
	return alert, true, nil
}

// AcknowledgeAlert records the acknowledging user. The alert stays active;
// a later acknowledgement by another user overwrites the first.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, id, userID string) (*models.Alert, error) {
	return s.store.AcknowledgeAlert(ctx, id, userID, time.Now().UTC())
}

// ResolveAlert marks the alert resolved. Resolution is terminal; resolving
// twice leaves is_active false with the last caller recorded.
func (s *AlertService) ResolveAlert(ctx context.Context, id, userID string) (*models.Alert, error) {
	return s.store.ResolveAlert(ctx, id, userID, time.Now().UTC())
}
