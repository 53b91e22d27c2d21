package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/metrics"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/services"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	sensors   *services.SensorService
	ingest    *services.IngestService
	alerts    *services.AlertService
	analytics *services.AnalyticsService
	store     storage.Store
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(sensors *services.SensorService, ingest *services.IngestService, alerts *services.AlertService, analytics *services.AnalyticsService, store storage.Store) *APIHandler {
	return &APIHandler{
		sensors:   sensors,
		ingest:    ingest,
		alerts:    alerts,
		analytics: analytics,
		store:     store,
	}
}

// errorResponse maps service errors onto status codes: validation failures
// become 400, missing rows 404, everything else 500.
func errorResponse(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("%s not found", what)})
	default:
		logrus.Errorf("Error handling %s request: %v", what, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Failed to handle %s", what)})
	}
}

// GetSensors returns all registered sensors
func (h *APIHandler) GetSensors(c echo.Context) error {
	sensors, err := h.sensors.ListSensors(c.Request().Context())
	if err != nil {
		return errorResponse(c, err, "sensors")
	}
	return c.JSON(http.StatusOK, sensors)
}

// GetSensorsByMachine returns the sensors bound to one machine
func (h *APIHandler) GetSensorsByMachine(c echo.Context) error {
	sensors, err := h.sensors.ListSensorsByMachine(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err, "sensors")
	}
	return c.JSON(http.StatusOK, sensors)
}

// GetSensor returns a sensor by ID
func (h *APIHandler) GetSensor(c echo.Context) error {
	sensor, err := h.sensors.GetSensor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err, "sensor")
	}
	return c.JSON(http.StatusOK, sensor)
}

// CreateSensor registers a new sensor
func (h *APIHandler) CreateSensor(c echo.Context) error {
	var req models.CreateSensorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	sensor, err := h.sensors.CreateSensor(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(c, err, "sensor")
	}
	return c.JSON(http.StatusCreated, sensor)
}

// UpdateSensor applies a partial patch to a sensor
func (h *APIHandler) UpdateSensor(c echo.Context) error {
	var req models.UpdateSensorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	sensor, err := h.sensors.UpdateSensor(c.Request().Context(), c.Param("id"), &req)
	if err != nil {
		return errorResponse(c, err, "sensor")
	}
	return c.JSON(http.StatusOK, sensor)
}

// DeleteSensor removes a sensor
func (h *APIHandler) DeleteSensor(c echo.Context) error {
	if err := h.sensors.DeleteSensor(c.Request().Context(), c.Param("id")); err != nil {
		return errorResponse(c, err, "sensor")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Sensor deleted successfully"})
}

// IngestData accepts one reading
func (h *APIHandler) IngestData(c echo.Context) error {
	var req models.IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	point, err := h.ingest.Append(c.Request().Context(), &req, metrics.SourceHTTP)
	if err != nil {
		return errorResponse(c, err, "data point")
	}
	return c.JSON(http.StatusCreated, point)
}

// IngestBulkData accepts a batch of readings with per-item outcomes
func (h *APIHandler) IngestBulkData(c echo.Context) error {
	var req models.BulkIngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	resp := h.ingest.BulkAppend(c.Request().Context(), req.Items, metrics.SourceHTTP)
	return c.JSON(http.StatusOK, resp)
}

// GetSensorData returns the most recent readings for a sensor
func (h *APIHandler) GetSensorData(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}

	points, err := h.ingest.Query(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return errorResponse(c, err, "data points")
	}
	return c.JSON(http.StatusOK, points)
}

// GetSensorDataRange returns readings within an inclusive time range
func (h *APIHandler) GetSensorDataRange(c echo.Context) error {
	startStr := c.QueryParam("start")
	endStr := c.QueryParam("end")

	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid start format"})
		}
	} else {
		start = time.Now().Add(-24 * time.Hour)
	}

	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid end format"})
		}
	} else {
		end = time.Now()
	}

	points, err := h.ingest.QueryRange(c.Request().Context(), c.Param("id"), start, end)
	if err != nil {
		return errorResponse(c, err, "data points")
	}
	return c.JSON(http.StatusOK, points)
}

// GetSensorLatest returns the newest reading for a sensor
func (h *APIHandler) GetSensorLatest(c echo.Context) error {
	point, err := h.ingest.Latest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err, "data point")
	}
	return c.JSON(http.StatusOK, point)
}

// GetSensorSummary returns analytics over a time window (default 24 hours)
func (h *APIHandler) GetSensorSummary(c echo.Context) error {
	hours := 24
	if v := c.QueryParam("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid hours"})
		}
		hours = parsed
	}

	summary, err := h.analytics.Summarize(c.Request().Context(), c.Param("id"), hours)
	if err != nil {
		return errorResponse(c, err, "summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// GetAlerts returns alerts, optionally filtered by sensor or active state
func (h *APIHandler) GetAlerts(c echo.Context) error {
	ctx := c.Request().Context()

	var alerts []models.Alert
	var err error
	switch {
	case c.QueryParam("sensor_id") != "":
		alerts, err = h.alerts.ListAlertsBySensor(ctx, c.QueryParam("sensor_id"))
	case c.QueryParam("active") == "true":
		alerts, err = h.alerts.ListActiveAlerts(ctx)
	default:
		alerts, err = h.alerts.ListAlerts(ctx)
	}
	if err != nil {
		return errorResponse(c, err, "alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// GetAlert returns an alert by ID
func (h *APIHandler) GetAlert(c echo.Context) error {
	alert, err := h.alerts.GetAlert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err, "alert")
	}
	return c.JSON(http.StatusOK, alert)
}

// CreateAlert injects an alert manually through the dedup path. A
// suppressed duplicate returns 200 with the suppression noted; a created
// alert returns 201.
func (h *APIHandler) CreateAlert(c echo.Context) error {
	var req models.CreateAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, created, err := h.alerts.CreateAlert(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(c, err, "alert")
	}
	if !created {
		return c.JSON(http.StatusOK, map[string]string{"message": "Active alert already exists for this sensor and type"})
	}
	return c.JSON(http.StatusCreated, alert)
}

// AcknowledgeAlert records the acknowledging operator
func (h *APIHandler) AcknowledgeAlert(c echo.Context) error {
	var req models.AcknowledgeAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alerts.AcknowledgeAlert(c.Request().Context(), c.Param("id"), req.AcknowledgedBy)
	if err != nil {
		return errorResponse(c, err, "alert")
	}
	return c.JSON(http.StatusOK, alert)
}

// ResolveAlert marks an alert resolved
func (h *APIHandler) ResolveAlert(c echo.Context) error {
	var req models.ResolveAlertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	alert, err := h.alerts.ResolveAlert(c.Request().Context(), c.Param("id"), req.ResolvedBy)
	if err != nil {
		return errorResponse(c, err, "alert")
	}
	return c.JSON(http.StatusOK, alert)
}

// Healthz reports storage connectivity
func (h *APIHandler) Healthz(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// SetupRoutes sets up the API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	// Sensor registry
	e.GET("/api/sensors", h.GetSensors)
	e.GET("/api/sensors/:id", h.GetSensor)
	e.POST("/api/sensors", h.CreateSensor)
	e.PUT("/api/sensors/:id", h.UpdateSensor)
	e.DELETE("/api/sensors/:id", h.DeleteSensor)
	e.GET("/api/machines/:id/sensors", h.GetSensorsByMachine)

	// Reading ingestion and history
	e.POST("/api/data", h.IngestData)
	e.POST("/api/data/bulk", h.IngestBulkData)
	e.GET("/api/sensors/:id/data", h.GetSensorData)
	e.GET("/api/sensors/:id/data/range", h.GetSensorDataRange)
	e.GET("/api/sensors/:id/data/latest", h.GetSensorLatest)
	e.GET("/api/sensors/:id/summary", h.GetSensorSummary)

	// Alert lifecycle
	e.GET("/api/alerts", h.GetAlerts)
	e.GET("/api/alerts/:id", h.GetAlert)
	e.POST("/api/alerts", h.CreateAlert)
	e.POST("/api/alerts/:id/acknowledge", h.AcknowledgeAlert)
	e.POST("/api/alerts/:id/resolve", h.ResolveAlert)

	e.GET("/healthz", h.Healthz)
}
