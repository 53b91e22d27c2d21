package models

import (
	"time"
)

// SensorType represents the kind of measurement a sensor produces
type SensorType string

const (
	SensorTypeTemperature SensorType = "temperature"
	SensorTypePressure    SensorType = "pressure"
	SensorTypeVibration   SensorType = "vibration"
	SensorTypeOther       SensorType = "other"
)

// Valid reports whether the sensor type is one of the known values
func (t SensorType) Valid() bool {
	switch t {
	case SensorTypeTemperature, SensorTypePressure, SensorTypeVibration, SensorTypeOther:
		return true
	}
	return false
}

// ThresholdCheckable reports whether readings of this sensor type are
// compared against warning/critical thresholds. Sensors of type "other"
// never alert.
func (t SensorType) ThresholdCheckable() bool {
	switch t {
	case SensorTypeTemperature, SensorTypePressure, SensorTypeVibration:
		return true
	}
	return false
}

// Sensor represents a logical measurement point bound to one machine
type Sensor struct {
	ID                string     `json:"id"`
	MachineID         string     `json:"machineId"`
	Type              SensorType `json:"type"`
	Name              string     `json:"name"`
	WarningThreshold  *float64   `json:"warningThreshold,omitempty"`
	CriticalThreshold *float64   `json:"criticalThreshold,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// CreateSensorRequest represents the request payload for registering a sensor
type CreateSensorRequest struct {
	MachineID         string     `json:"machineId"`
	Type              SensorType `json:"type"`
	Name              string     `json:"name"`
	WarningThreshold  *float64   `json:"warningThreshold,omitempty"`
	CriticalThreshold *float64   `json:"criticalThreshold,omitempty"`
}

// UpdateSensorRequest represents the request payload for patching a sensor.
// Nil fields are left untouched.
type UpdateSensorRequest struct {
	MachineID         *string     `json:"machineId,omitempty"`
	Type              *SensorType `json:"type,omitempty"`
	Name              *string     `json:"name,omitempty"`
	WarningThreshold  *float64    `json:"warningThreshold,omitempty"`
	CriticalThreshold *float64    `json:"criticalThreshold,omitempty"`
}
