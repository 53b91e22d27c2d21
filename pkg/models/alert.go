package models

import (
	"time"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertType identifies the condition class an alert reports. Threshold
// breaches are the only type raised by the evaluator today.
type AlertType string

const (
	AlertTypeThresholdExceeded AlertType = "threshold_exceeded"
)

// Alert represents an out-of-bounds condition requiring operator attention.
//
// Lifecycle: created active, optionally acknowledged (stays active), then
// resolved (terminal, active=false). There is no re-open transition.
type Alert struct {
	ID             string        `json:"id"`
	SensorID       string        `json:"sensorId"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	Value          float64       `json:"value"`
	Threshold      float64       `json:"threshold"`
	IsActive       bool          `json:"isActive"`
	AcknowledgedBy string        `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledgedAt,omitempty"`
	ResolvedBy     string        `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// CreateAlertRequest represents the request payload for manual alert injection.
// It passes through the same dedup path as evaluator-raised alerts.
type CreateAlertRequest struct {
	SensorID  string        `json:"sensorId"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
}

// AcknowledgeAlertRequest represents the request payload for acknowledging an alert
type AcknowledgeAlertRequest struct {
	AcknowledgedBy string `json:"acknowledgedBy"`
}

// ResolveAlertRequest represents the request payload for resolving an alert
type ResolveAlertRequest struct {
	ResolvedBy string `json:"resolvedBy"`
}
