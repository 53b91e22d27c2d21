package models

import (
	"encoding/json"
	"time"
)

// SensorDataPoint is one time-stamped reading. Points are append-only and
// never mutated after creation.
type SensorDataPoint struct {
	ID        string    `json:"id"`
	SensorID  string    `json:"sensorId"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
}

// IngestRequest represents the request payload for a single reading
type IngestRequest struct {
	SensorID  string     `json:"sensorId"`
	Value     *float64   `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Status    string     `json:"status,omitempty"`
}

// BulkIngestRequest represents the request payload for batch ingestion.
// Items stay raw so that one malformed item (wrong type for a field, bad
// JSON shape) fails on its own instead of aborting the whole batch decode.
type BulkIngestRequest struct {
	Items []json.RawMessage `json:"items"`
}

// BulkItemResult is the per-item outcome of a bulk ingestion. Exactly one
// of Point or Error is set; Item echoes the submitted payload on failure.
type BulkItemResult struct {
	Point *SensorDataPoint `json:"point,omitempty"`
	Error string           `json:"error,omitempty"`
	Item  json.RawMessage  `json:"item,omitempty"`
}

// BulkIngestResponse reports how many items were attempted and the outcome
// of each. Item failures do not abort the batch.
type BulkIngestResponse struct {
	Processed int              `json:"processed"`
	Results   []BulkItemResult `json:"results"`
}

// SensorSummary is the analytics summary over a requested time window.
//
// Trend compares the average of the first half of the newest-first point
// list against the second half. Because the list is newest-first, "firstHalf"
// is the chronologically later data; the labels follow the behavior of the
// system this gateway replaced, which reads them the other way around. Kept
// as-is so both systems report identical trends for identical data.
type SensorSummary struct {
	Average    float64           `json:"average"`
	Min        float64           `json:"min"`
	Max        float64           `json:"max"`
	Latest     float64           `json:"latest"`
	Trend      string            `json:"trend"`
	DataPoints []SensorDataPoint `json:"dataPoints"`
}

// Trend classifications
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)
