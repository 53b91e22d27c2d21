package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsIngested counts readings accepted into the data log
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_readings_ingested_total",
			Help: "Total number of sensor readings ingested",
		},
		[]string{"source"},
	)

	// IngestFailures counts readings rejected before persistence
	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_readings_rejected_total",
			Help: "Total number of sensor readings rejected at validation",
		},
		[]string{"source"},
	)

	// AlertsRaised counts alerts created by the threshold evaluator
	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_raised_total",
			Help: "Total number of alerts raised",
		},
		[]string{"severity"},
	)

	// AlertsDeduplicated counts alert conditions dropped by the dedup check
	AlertsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_deduplicated_total",
			Help: "Total number of alert conditions suppressed by deduplication",
		},
	)

	// IngestLatency observes end-to-end ingest handling time, including
	// threshold evaluation and any alert write
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_latency_seconds",
			Help:    "Reading ingestion latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Ingest sources for the readings counters
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)
