package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultSensorCount = 5
	defaultIntervalMs  = 1000 // 1 second
)

// Sensor mirrors the gateway's sensor record
type Sensor struct {
	ID                string   `json:"id"`
	MachineID         string   `json:"machineId"`
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	WarningThreshold  *float64 `json:"warningThreshold,omitempty"`
	CriticalThreshold *float64 `json:"criticalThreshold,omitempty"`
}

// Reading is the ingestion payload
type Reading struct {
	SensorID  string    `json:"sensorId"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func main() {
	gatewayURL := getEnv("GATEWAY_URL", "http://localhost:8080")
	sensorCount, _ := strconv.Atoi(getEnv("SENSOR_COUNT", fmt.Sprintf("%d", defaultSensorCount)))
	intervalMs, _ := strconv.Atoi(getEnv("INTERVAL_MS", fmt.Sprintf("%d", defaultIntervalMs)))
	checkAlerts, _ := strconv.ParseBool(getEnv("CHECK_ALERTS", "true"))
	alertCheckIntervalSec, _ := strconv.Atoi(getEnv("ALERT_CHECK_INTERVAL_SEC", "10"))

	sensors, err := registerSensors(gatewayURL, sensorCount)
	if err != nil {
		logrus.Fatalf("Failed to register sensors: %v", err)
	}

	if checkAlerts {
		go monitorAlerts(gatewayURL, time.Duration(alertCheckIntervalSec)*time.Second)
	}

	logrus.Infof("Starting data generation with %d sensors, sending data every %d ms",
		len(sensors), intervalMs)

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		for _, sensor := range sensors {
			reading := generateReading(sensor)

			// Occasionally spike above threshold to trigger alerts
			if rand.Intn(50) == 0 {
				reading.Value = *sensor.CriticalThreshold + 5.0 + rand.Float64()*10.0
				logrus.Warnf("Sent spike reading: %s - %.2f (should trigger alert)",
					sensor.Name, reading.Value)
			}

			if err := sendReading(gatewayURL, reading); err != nil {
				logrus.Errorf("Error sending reading: %v", err)
			}
		}
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// registerSensors creates temperature sensors via the gateway API
func registerSensors(gatewayURL string, count int) ([]Sensor, error) {
	sensors := make([]Sensor, 0, count)
	for i := 1; i <= count; i++ {
		warning := 70.0
		critical := 85.0
		payload := Sensor{
			MachineID:         fmt.Sprintf("machine_%d", (i-1)/2+1),
			Type:              "temperature",
			Name:              fmt.Sprintf("sim_temp_%d", i),
			WarningThreshold:  &warning,
			CriticalThreshold: &critical,
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		resp, err := http.Post(gatewayURL+"/api/sensors", "application/json", bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create sensor: %w", err)
		}

		var created Sensor
		err = json.NewDecoder(resp.Body).Decode(&created)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode sensor response: %w", err)
		}
		if resp.StatusCode != http.StatusCreated {
			return nil, fmt.Errorf("unexpected status %d creating sensor", resp.StatusCode)
		}

		logrus.Infof("Registered sensor %s (%s)", created.Name, created.ID)
		sensors = append(sensors, created)
	}
	return sensors, nil
}

// generateReading produces a value comfortably below the warning threshold
func generateReading(sensor Sensor) Reading {
	base := 55.0 + rand.Float64()*10.0
	noise := rand.Float64()*2.0 - 1.0

	return Reading{
		SensorID:  sensor.ID,
		Value:     base + noise,
		Timestamp: time.Now().UTC(),
		Status:    "ok",
	}
}

// sendReading posts one reading to the ingestion endpoint
func sendReading(gatewayURL string, reading Reading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	resp, err := http.Post(gatewayURL+"/api/data", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d ingesting reading", resp.StatusCode)
	}
	return nil
}

// monitorAlerts polls the active alerts endpoint and logs what it finds
func monitorAlerts(gatewayURL string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		resp, err := http.Get(gatewayURL + "/api/alerts?active=true")
		if err != nil {
			logrus.Errorf("Error checking alerts: %v", err)
			continue
		}

		var alerts []map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&alerts)
		resp.Body.Close()
		if err != nil {
			logrus.Errorf("Error decoding alerts: %v", err)
			continue
		}

		if len(alerts) > 0 {
			logrus.Infof("%d active alert(s)", len(alerts))
			for _, alert := range alerts {
				logrus.Infof("  [%v] sensor %v: %v", alert["severity"], alert["sensorId"], alert["message"])
			}
		}
	}
}
