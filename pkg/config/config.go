package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	AllowedOrigins  string `mapstructure:"allowedOrigins"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// PostgresConfig holds the Postgres connection configuration. An empty Host
// selects the in-memory store instead.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds the Redis cache configuration. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttlSeconds"`
}

// MQTTConfig holds the optional MQTT ingestion bridge configuration. An
// empty Broker disables the bridge.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"clientId"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

// LoadConfig loads the application configuration from file or environment
// variables. It works on its own viper instance so repeated loads do not
// see each other's state.
func LoadConfig(configPath string) (*Config, error) {
	var config Config
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.shutdownTimeout", 10)
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.ttlSeconds", 60)
	v.SetDefault("mqtt.clientId", "sensor-alert-gateway")
	v.SetDefault("mqtt.topic", "sensors/+/readings")

	// Allow environment variables to override config file
	v.SetEnvPrefix("SENSOR_GATEWAY")
	v.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
