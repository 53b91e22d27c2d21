package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/config"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
)

// PostgresStore is the relational Store backed by lib/pq
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and verifies the connection
func NewPostgresStore(cfg *config.PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	logrus.Infof("Connecting to Postgres at %s:%s (database: %s)", cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Hour)

	// Test connection with retries
	var pingErr error
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		logrus.Warnf("Failed to ping Postgres (attempt %d/5): %v", i+1, pingErr)
		time.Sleep(2 * time.Second)
	}
	if pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Postgres after multiple attempts: %w", pingErr)
	}

	logrus.Info("Successfully connected to Postgres")
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing database handle. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables and indexes if they do not exist.
//
// The partial unique index on (sensor_id, alert_type) WHERE is_active is what
// makes the alert dedup safe under concurrent ingestion: the existence check
// and the insert race otherwise.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sensors (
			id text PRIMARY KEY,
			machine_id text NOT NULL,
			type text NOT NULL,
			name text NOT NULL,
			warning_threshold double precision,
			critical_threshold double precision,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sensor_data (
			id text PRIMARY KEY,
			sensor_id text NOT NULL,
			value double precision NOT NULL,
			ts timestamptz NOT NULL,
			status text NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_data_sensor_ts ON sensor_data (sensor_id, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id text PRIMARY KEY,
			sensor_id text NOT NULL,
			alert_type text NOT NULL,
			severity text NOT NULL,
			message text NOT NULL,
			value double precision NOT NULL,
			threshold double precision NOT NULL,
			is_active boolean NOT NULL,
			acknowledged_by text,
			acknowledged_at timestamptz,
			resolved_by text,
			resolved_at timestamptz,
			created_at timestamptz NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_alerts_active ON alerts (sensor_id, alert_type) WHERE is_active`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

const sensorColumns = `id, machine_id, type, name, warning_threshold, critical_threshold, created_at, updated_at`

func scanSensor(row interface{ Scan(...interface{}) error }) (*models.Sensor, error) {
	var sensor models.Sensor
	var warning, critical sql.NullFloat64

	err := row.Scan(
		&sensor.ID,
		&sensor.MachineID,
		&sensor.Type,
		&sensor.Name,
		&warning,
		&critical,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if warning.Valid {
		sensor.WarningThreshold = &warning.Float64
	}
	if critical.Valid {
		sensor.CriticalThreshold = &critical.Float64
	}
	return &sensor, nil
}

func (s *PostgresStore) querySensors(ctx context.Context, query string, args ...interface{}) ([]models.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensors: %w", err)
	}
	defer rows.Close()

	sensors := []models.Sensor{}
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, *sensor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensors: %w", err)
	}
	return sensors, nil
}

// ListSensors returns all registered sensors
func (s *PostgresStore) ListSensors(ctx context.Context) ([]models.Sensor, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensors ORDER BY created_at`, sensorColumns)
	return s.querySensors(ctx, query)
}

// ListSensorsByMachine returns the sensors bound to one machine
func (s *PostgresStore) ListSensorsByMachine(ctx context.Context, machineID string) ([]models.Sensor, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensors WHERE machine_id = $1 ORDER BY created_at`, sensorColumns)
	return s.querySensors(ctx, query, machineID)
}

// GetSensor returns a sensor by id or ErrNotFound
func (s *PostgresStore) GetSensor(ctx context.Context, id string) (*models.Sensor, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensors WHERE id = $1`, sensorColumns)
	sensor, err := scanSensor(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	return sensor, nil
}

// CreateSensor inserts a new sensor row
func (s *PostgresStore) CreateSensor(ctx context.Context, sensor *models.Sensor) error {
	query := `
		INSERT INTO sensors (id, machine_id, type, name, warning_threshold, critical_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		sensor.ID,
		sensor.MachineID,
		sensor.Type,
		sensor.Name,
		sensor.WarningThreshold,
		sensor.CriticalThreshold,
		sensor.CreatedAt,
		sensor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	return nil
}

// UpdateSensor writes the full sensor row. The service applies the partial
// patch before calling this.
func (s *PostgresStore) UpdateSensor(ctx context.Context, sensor *models.Sensor) error {
	query := `
		UPDATE sensors
		SET machine_id = $1, type = $2, name = $3, warning_threshold = $4, critical_threshold = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		sensor.MachineID,
		sensor.Type,
		sensor.Name,
		sensor.WarningThreshold,
		sensor.CriticalThreshold,
		sensor.UpdatedAt,
		sensor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sensor: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSensor removes a sensor row. Deleting an unknown id is not an error.
// Historical data points and alerts are left in place.
func (s *PostgresStore) DeleteSensor(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sensors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete sensor: %w", err)
	}
	return nil
}

const dataPointColumns = `id, sensor_id, value, ts, status`

func (s *PostgresStore) queryDataPoints(ctx context.Context, query string, args ...interface{}) ([]models.SensorDataPoint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query data points: %w", err)
	}
	defer rows.Close()

	points := []models.SensorDataPoint{}
	for rows.Next() {
		var point models.SensorDataPoint
		if err := rows.Scan(&point.ID, &point.SensorID, &point.Value, &point.Timestamp, &point.Status); err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate data points: %w", err)
	}
	return points, nil
}

// InsertDataPoint appends one reading to the log
func (s *PostgresStore) InsertDataPoint(ctx context.Context, point *models.SensorDataPoint) error {
	query := `INSERT INTO sensor_data (id, sensor_id, value, ts, status) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, point.ID, point.SensorID, point.Value, point.Timestamp, point.Status)
	if err != nil {
		return fmt.Errorf("failed to insert data point: %w", err)
	}
	return nil
}

// ListDataPoints returns the most recent limit readings, newest first
func (s *PostgresStore) ListDataPoints(ctx context.Context, sensorID string, limit int) ([]models.SensorDataPoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensor_data WHERE sensor_id = $1 ORDER BY ts DESC LIMIT $2`, dataPointColumns)
	return s.queryDataPoints(ctx, query, sensorID, limit)
}

// ListDataPointsInRange returns readings with start <= ts <= end, newest first
func (s *PostgresStore) ListDataPointsInRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.SensorDataPoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensor_data WHERE sensor_id = $1 AND ts >= $2 AND ts <= $3 ORDER BY ts DESC`, dataPointColumns)
	return s.queryDataPoints(ctx, query, sensorID, start, end)
}

// LatestDataPoint returns the newest reading or ErrNotFound
func (s *PostgresStore) LatestDataPoint(ctx context.Context, sensorID string) (*models.SensorDataPoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM sensor_data WHERE sensor_id = $1 ORDER BY ts DESC LIMIT 1`, dataPointColumns)
	var point models.SensorDataPoint
	err := s.db.QueryRowContext(ctx, query, sensorID).Scan(&point.ID, &point.SensorID, &point.Value, &point.Timestamp, &point.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest data point: %w", err)
	}
	return &point, nil
}

const alertColumns = `id, sensor_id, alert_type, severity, message, value, threshold, is_active, acknowledged_by, acknowledged_at, resolved_by, resolved_at, created_at`

func scanAlert(row interface{ Scan(...interface{}) error }) (*models.Alert, error) {
	var alert models.Alert
	var ackBy, resolvedBy sql.NullString
	var ackAt, resolvedAt sql.NullTime

	err := row.Scan(
		&alert.ID,
		&alert.SensorID,
		&alert.Type,
		&alert.Severity,
		&alert.Message,
		&alert.Value,
		&alert.Threshold,
		&alert.IsActive,
		&ackBy,
		&ackAt,
		&resolvedBy,
		&resolvedAt,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ackBy.Valid {
		alert.AcknowledgedBy = ackBy.String
	}
	if ackAt.Valid {
		alert.AcknowledgedAt = &ackAt.Time
	}
	if resolvedBy.Valid {
		alert.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	return &alert, nil
}

func (s *PostgresStore) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// ListAlerts returns all alerts, newest first
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts ORDER BY created_at DESC`, alertColumns)
	return s.queryAlerts(ctx, query)
}

// ListActiveAlerts returns all unresolved alerts, newest first
func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE is_active ORDER BY created_at DESC`, alertColumns)
	return s.queryAlerts(ctx, query)
}

// ListAlertsBySensor returns the alerts raised for one sensor, newest first
func (s *PostgresStore) ListAlertsBySensor(ctx context.Context, sensorID string) ([]models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE sensor_id = $1 ORDER BY created_at DESC`, alertColumns)
	return s.queryAlerts(ctx, query, sensorID)
}

// GetAlert returns an alert by id or ErrNotFound
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1`, alertColumns)
	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// InsertAlertIfNoneActive inserts the alert unless an active one with the
// same (sensor_id, alert_type) exists. The ON CONFLICT target is the partial
// unique index created by EnsureSchema, so the dedup holds under concurrent
// ingestion.
func (s *PostgresStore) InsertAlertIfNoneActive(ctx context.Context, alert *models.Alert) (bool, error) {
	query := `
		INSERT INTO alerts (id, sensor_id, alert_type, severity, message, value, threshold, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8)
		ON CONFLICT (sensor_id, alert_type) WHERE is_active DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		alert.ID,
		alert.SensorID,
		alert.Type,
		alert.Severity,
		alert.Message,
		alert.Value,
		alert.Threshold,
		alert.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// AcknowledgeAlert records who acknowledged the alert and when. The alert
// stays active. Last writer wins on repeated acknowledgements.
func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	query := `UPDATE alerts SET acknowledged_by = $1, acknowledged_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, userID, at, id)
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetAlert(ctx, id)
}

// ResolveAlert clears the active flag and records who resolved the alert.
// Resolving an already-resolved alert overwrites resolved_by/resolved_at.
func (s *PostgresStore) ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*models.Alert, error) {
	query := `UPDATE alerts SET resolved_by = $1, resolved_at = $2, is_active = false WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, userID, at, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetAlert(ctx, id)
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
