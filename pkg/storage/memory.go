package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mfgops/sensor-alert-gateway/pkg/models"
)

// MemoryStore is an in-process Store used in dev mode and in tests. All
// methods copy values in and out so callers never share memory with the
// store.
type MemoryStore struct {
	mu      sync.RWMutex
	sensors map[string]models.Sensor
	points  map[string][]models.SensorDataPoint // per sensor, insertion order
	alerts  map[string]models.Alert
	order   []string // alert ids in insertion order
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sensors: make(map[string]models.Sensor),
		points:  make(map[string][]models.SensorDataPoint),
		alerts:  make(map[string]models.Alert),
	}
}

// ListSensors returns all registered sensors ordered by creation time
func (s *MemoryStore) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensors := make([]models.Sensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		sensors = append(sensors, sensor)
	}
	sort.Slice(sensors, func(i, j int) bool {
		return sensors[i].CreatedAt.Before(sensors[j].CreatedAt)
	})
	return sensors, nil
}

// ListSensorsByMachine returns the sensors bound to one machine
func (s *MemoryStore) ListSensorsByMachine(ctx context.Context, machineID string) ([]models.Sensor, error) {
	all, _ := s.ListSensors(ctx)
	sensors := []models.Sensor{}
	for _, sensor := range all {
		if sensor.MachineID == machineID {
			sensors = append(sensors, sensor)
		}
	}
	return sensors, nil
}

// GetSensor returns a sensor by id or ErrNotFound
func (s *MemoryStore) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensor, ok := s.sensors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sensor, nil
}

// CreateSensor stores a new sensor
func (s *MemoryStore) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors[sensor.ID] = *sensor
	return nil
}

// UpdateSensor replaces the stored sensor or returns ErrNotFound
func (s *MemoryStore) UpdateSensor(ctx context.Context, sensor *models.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sensors[sensor.ID]; !ok {
		return ErrNotFound
	}
	s.sensors[sensor.ID] = *sensor
	return nil
}

// DeleteSensor removes a sensor. Historical points and alerts are kept.
func (s *MemoryStore) DeleteSensor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sensors, id)
	return nil
}

// InsertDataPoint appends one reading
func (s *MemoryStore) InsertDataPoint(ctx context.Context, point *models.SensorDataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[point.SensorID] = append(s.points[point.SensorID], *point)
	return nil
}

// newestFirst returns a copy of the sensor's points sorted newest first.
// Caller must hold at least the read lock.
func (s *MemoryStore) newestFirst(sensorID string) []models.SensorDataPoint {
	src := s.points[sensorID]
	points := make([]models.SensorDataPoint, len(src))
	copy(points, src)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.After(points[j].Timestamp)
	})
	return points
}

// ListDataPoints returns the most recent limit readings, newest first
func (s *MemoryStore) ListDataPoints(ctx context.Context, sensorID string, limit int) ([]models.SensorDataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.newestFirst(sensorID)
	if limit > 0 && limit < len(points) {
		points = points[:limit]
	}
	return points, nil
}

// ListDataPointsInRange returns readings with start <= ts <= end, newest first
func (s *MemoryStore) ListDataPointsInRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.SensorDataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := []models.SensorDataPoint{}
	for _, point := range s.newestFirst(sensorID) {
		if !point.Timestamp.Before(start) && !point.Timestamp.After(end) {
			filtered = append(filtered, point)
		}
	}
	return filtered, nil
}

// LatestDataPoint returns the newest reading or ErrNotFound
func (s *MemoryStore) LatestDataPoint(ctx context.Context, sensorID string) (*models.SensorDataPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.newestFirst(sensorID)
	if len(points) == 0 {
		return nil, ErrNotFound
	}
	return &points[0], nil
}

// ListAlerts returns all alerts, newest first
func (s *MemoryStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]models.Alert, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		alerts = append(alerts, s.alerts[s.order[i]])
	}
	return alerts, nil
}

// ListActiveAlerts returns all unresolved alerts, newest first
func (s *MemoryStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	all, _ := s.ListAlerts(ctx)
	alerts := []models.Alert{}
	for _, alert := range all {
		if alert.IsActive {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// ListAlertsBySensor returns the alerts raised for one sensor, newest first
func (s *MemoryStore) ListAlertsBySensor(ctx context.Context, sensorID string) ([]models.Alert, error) {
	all, _ := s.ListAlerts(ctx)
	alerts := []models.Alert{}
	for _, alert := range all {
		if alert.SensorID == sensorID {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// GetAlert returns an alert by id or ErrNotFound
func (s *MemoryStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &alert, nil
}

// InsertAlertIfNoneActive inserts the alert unless an active one with the
// same (sensorID, type) exists. Check and insert happen under one lock, so
// the dedup holds under concurrent ingestion.
func (s *MemoryStore) InsertAlertIfNoneActive(ctx context.Context, alert *models.Alert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.SensorID == alert.SensorID && existing.Type == alert.Type && existing.IsActive {
			return false, nil
		}
	}

	stored := *alert
	stored.IsActive = true
	s.alerts[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return true, nil
}

// AcknowledgeAlert records who acknowledged the alert and when
func (s *MemoryStore) AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	alert.AcknowledgedBy = userID
	ackAt := at
	alert.AcknowledgedAt = &ackAt
	s.alerts[id] = alert
	return &alert, nil
}

// ResolveAlert clears the active flag and records who resolved the alert
func (s *MemoryStore) ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	alert.ResolvedBy = userID
	resolvedAt := at
	alert.ResolvedAt = &resolvedAt
	alert.IsActive = false
	s.alerts[id] = alert
	return &alert, nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
