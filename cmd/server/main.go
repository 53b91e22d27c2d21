package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mfgops/sensor-alert-gateway/pkg/api"
	"github.com/mfgops/sensor-alert-gateway/pkg/cache"
	"github.com/mfgops/sensor-alert-gateway/pkg/config"
	"github.com/mfgops/sensor-alert-gateway/pkg/mqtt"
	"github.com/mfgops/sensor-alert-gateway/pkg/services"
	"github.com/mfgops/sensor-alert-gateway/pkg/storage"
)

// @title Sensor Alert Gateway API
// @version 1.0
// @description API for machine sensor registration, reading ingestion and threshold alerting
// @BasePath /api

func main() {
	// Configure Log Level from Environment Variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Set up storage: Postgres when configured, in-memory otherwise
	var store storage.Store
	if cfg.Postgres.Host != "" {
		pgStore, err := storage.NewPostgresStore(&cfg.Postgres)
		if err != nil {
			logrus.Fatalf("Failed to connect to Postgres: %v", err)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logrus.Fatalf("Failed to ensure schema: %v", err)
		}
		store = pgStore
	} else {
		logrus.Warn("No Postgres host configured, using in-memory storage")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	// Optional Redis cache
	var readCache *cache.Cache
	if cfg.Redis.Addr != "" {
		readCache, err = cache.NewCache(&cfg.Redis)
		if err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer readCache.Close()
		logrus.Infof("Redis cache enabled at %s", cfg.Redis.Addr)
	}

	// Initialize services
	sensorService := services.NewSensorService(store)
	evaluator := services.NewEvaluator(store)
	alertService := services.NewAlertService(store)
	ingestService := services.NewIngestService(store, evaluator, alertService, readCache)
	analyticsService := services.NewAnalyticsService(store, readCache)

	// Optional MQTT ingestion bridge
	var ingestor *mqtt.Ingestor
	if cfg.MQTT.Broker != "" {
		ingestor, err = mqtt.NewIngestor(&cfg.MQTT, ingestService)
		if err != nil {
			logrus.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		if err := ingestor.Start(); err != nil {
			logrus.Fatalf("Failed to start MQTT ingestor: %v", err)
		}
		logrus.Info("MQTT ingestion bridge started")
	}

	// Set up the Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
	}))

	// API routes
	apiHandler := api.NewAPIHandler(sensorService, ingestService, alertService, analyticsService, store)
	apiHandler.SetupRoutes(e)

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Swagger documentation
	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Create HTTP server
	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	if ingestor != nil {
		ingestor.Close()
		logrus.Info("MQTT ingestor shutdown complete")
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Shutdown the server
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}
