package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Supervisor SupervisorConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port string
	Host string
	// AllowedHosts restricts CORS to the listed origins; empty allows any.
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SupervisorConfig struct {
	// WorkerCount is the number of worker processes; 0 means one per
	// available CPU core.
	WorkerCount int
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	// MetricsBasePort is offset by the worker slot index so sibling
	// workers on one host never collide on the metrics listener.
	MetricsBasePort int
}

func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	workerCount, err := strconv.Atoi(getEnv("WORKER_COUNT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_COUNT: %w", err)
	}
	if workerCount < 0 {
		return nil, fmt.Errorf("WORKER_COUNT must not be negative")
	}
	if workerCount == 0 {
		workerCount = runtime.NumCPU()
	}

	metricsBasePort, err := strconv.Atoi(getEnv("METRICS_BASE_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_BASE_PORT: %w", err)
	}

	// Parse allowed hosts (comma-separated list)
	var allowedHosts []string
	for _, host := range strings.Split(getEnv("ALLOWED_HOSTS", ""), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			allowedHosts = append(allowedHosts, host)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "moneta"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "moneta"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Supervisor: SupervisorConfig{
			WorkerCount: workerCount,
		},
		Telemetry: TelemetryConfig{
			Enabled:         getBoolEnv("OTEL_ENABLED", false),
			ServiceName:     getEnv("OTEL_SERVICE_NAME", "moneta-api"),
			OTLPEndpoint:    getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsBasePort: metricsBasePort,
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
