// Package config provides application configuration management,
// loading settings from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Service configuration
	ServiceName string
	Environment string
	GRPCPort    string
	HTTPPort    string

	// Database configuration
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	// MQTT sample feed
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	// Redis snapshot fan-out; empty address keeps the hub local
	RedisAddr     string
	RedisPassword string

	// Session processing
	SnapshotInterval time.Duration
	QueueWorkers     int

	// Serial NMEA bridge
	NMEAPort  string
	NMEABaud  int
	NMEAUERE  float64
	SessionID string

	// OpenTelemetry configuration
	OTELEndpoint string
	OTELEnabled  bool

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "workout-tracker"),
		Environment: getEnv("ENVIRONMENT", "development"),
		GRPCPort:    getEnv("GRPC_PORT", "50051"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "workouts"),
		PostgresUser:     getEnv("POSTGRES_USER", "development"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "development"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "workout/+/samples"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "workout-tracker"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		NMEAPort:  getEnv("NMEA_PORT", "/dev/ttyUSB0"),
		SessionID: getEnv("SESSION_ID", ""),

		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.SnapshotInterval, err = parseDuration("SNAPSHOT_INTERVAL", "1s")
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_INTERVAL: %w", err)
	}
	if cfg.SnapshotInterval <= 0 {
		return nil, fmt.Errorf("invalid SNAPSHOT_INTERVAL: must be positive, got %s", cfg.SnapshotInterval)
	}

	cfg.QueueWorkers, err = parseInt("QUEUE_WORKERS", "2")
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_WORKERS: %w", err)
	}
	if cfg.QueueWorkers < 1 {
		return nil, fmt.Errorf("invalid QUEUE_WORKERS: must be at least 1, got %d", cfg.QueueWorkers)
	}

	cfg.NMEABaud, err = parseInt("NMEA_BAUD", "9600")
	if err != nil {
		return nil, fmt.Errorf("invalid NMEA_BAUD: %w", err)
	}

	cfg.NMEAUERE, err = parseFloat("NMEA_UERE_M", "5.0")
	if err != nil {
		return nil, fmt.Errorf("invalid NMEA_UERE_M: %w", err)
	}

	cfg.OTELEnabled, err = parseBool("OTEL_ENABLED", "true")
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_ENABLED: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresUser,
		c.PostgresPassword,
	)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseFloat parses a float64 from an environment variable or default value
func parseFloat(key, defaultValue string) (float64, error) {
	value := getEnv(key, defaultValue)
	return strconv.ParseFloat(value, 64)
}

func parseInt(key, defaultValue string) (int, error) {
	return strconv.Atoi(getEnv(key, defaultValue))
}

func parseBool(key, defaultValue string) (bool, error) {
	return strconv.ParseBool(getEnv(key, defaultValue))
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnv(key, defaultValue))
}
