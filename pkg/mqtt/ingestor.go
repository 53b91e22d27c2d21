package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/config"
	"github.com/mfgops/sensor-alert-gateway/pkg/metrics"
	"github.com/mfgops/sensor-alert-gateway/pkg/models"
	"github.com/mfgops/sensor-alert-gateway/pkg/services"
)

// Ingestor bridges MQTT readings into the same ingest pipeline as the REST
// endpoint. Sensors publish JSON readings to sensors/<sensorId>/readings;
// the sensor id is taken from the topic when the payload omits it.
type Ingestor struct {
	client paho.Client
	ingest *services.IngestService
	topic  string
}

// NewIngestor connects to the MQTT broker
func NewIngestor(cfg *config.MQTTConfig, ingest *services.IngestService) (*Ingestor, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logrus.Infof("Connected to MQTT broker %s", cfg.Broker)
	return &Ingestor{
		client: client,
		ingest: ingest,
		topic:  cfg.Topic,
	}, nil
}

// Start subscribes to the readings topic
func (i *Ingestor) Start() error {
	token := i.client.Subscribe(i.topic, 1, func(client paho.Client, msg paho.Message) {
		i.handleMessage(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", i.topic, token.Error())
	}
	logrus.Infof("Subscribed to MQTT topic %s", i.topic)
	return nil
}

// handleMessage parses one reading and feeds it to the ingest service.
// Malformed payloads are logged and dropped; a bad reading from one sensor
// must not disturb the subscription.
func (i *Ingestor) handleMessage(topic string, payload []byte) {
	var req models.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		metrics.IngestFailures.WithLabelValues(metrics.SourceMQTT).Inc()
		logrus.Warnf("Dropping malformed MQTT reading on %s: %v", topic, err)
		return
	}

	if req.SensorID == "" {
		req.SensorID = sensorIDFromTopic(topic)
	}

	if _, err := i.ingest.Append(context.Background(), &req, metrics.SourceMQTT); err != nil {
		logrus.Warnf("Failed to ingest MQTT reading on %s: %v", topic, err)
	}
}

// sensorIDFromTopic extracts the sensor id from sensors/<id>/readings
func sensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}

// Close disconnects from the broker
func (i *Ingestor) Close() {
	i.client.Disconnect(250)
}
