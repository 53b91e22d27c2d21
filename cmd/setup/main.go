package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mfgops/sensor-alert-gateway/pkg/config"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// Applies the gateway schema to Postgres without starting the server.
// Useful for provisioning a database ahead of a deploy.
func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Postgres.Host == "" {
		logrus.Fatal("No Postgres host configured; nothing to set up")
	}

	store, err := storage.NewPostgresStore(&cfg.Postgres)
	if err != nil {
		logrus.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		logrus.Fatalf("Failed to apply schema: %v", err)
	}
	logrus.Info("Schema applied: sensors, sensor_data, alerts")
}
