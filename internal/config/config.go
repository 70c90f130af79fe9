// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the traffic slot reservation service.
// Values are populated by Load from environment variables and are immutable
// after load — components receive the struct by value at wiring time.
type Config struct {
	// Port is the TCP port the ops HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// AMQPURL is the RabbitMQ connection string. Required.
	AMQPURL string

	// ExchangeName is the topic exchange journey events flow through.
	// Defaults to "journey.events".
	ExchangeName string

	// QueueName is the durable queue this service consumes from.
	// Defaults to "traffic_service_queue".
	QueueName string

	// RoutingKey is the binding pattern for inbound events. Defaults to "journey.*".
	RoutingKey string

	// Prefetch bounds the number of unacknowledged deliveries in flight,
	// which in turn bounds concurrent saga executions. Defaults to 10.
	Prefetch int

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LockRetryAttempts is the maximum number of slot lock acquisition
	// attempts per saga step. Defaults to 15.
	LockRetryAttempts int

	// LockRetryBase is the initial backoff between lock attempts. Defaults to 500ms.
	LockRetryBase time.Duration

	// LockRetryCap caps the backoff between lock attempts. Defaults to 3s.
	LockRetryCap time.Duration

	// PublishRetryAttempts is the maximum number of outbound publish
	// attempts per event. Defaults to 5.
	PublishRetryAttempts int

	// Capacity bands for lazily created slots, inclusive.
	// Defaults: cities 3–10, countries 30–100.
	CityCapacityMin    int
	CityCapacityMax    int
	CountryCapacityMin int
	CountryCapacityMax int

	// MaxRouteStops is the maximum number of intermediate stops the route
	// planner inserts between origin and destination. Defaults to 5.
	MaxRouteStops int
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		ExchangeName:         getEnv("EXCHANGE_NAME", "journey.events"),
		QueueName:            getEnv("QUEUE_NAME", "traffic_service_queue"),
		RoutingKey:           getEnv("ROUTING_KEY", "journey.*"),
		Prefetch:             getEnvInt("PREFETCH", 10),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LockRetryAttempts:    getEnvInt("LOCK_RETRY_ATTEMPTS", 15),
		LockRetryBase:        getEnvDuration("LOCK_RETRY_BASE", 500*time.Millisecond),
		LockRetryCap:         getEnvDuration("LOCK_RETRY_CAP", 3*time.Second),
		PublishRetryAttempts: getEnvInt("PUBLISH_RETRY_ATTEMPTS", 5),
		CityCapacityMin:      getEnvInt("CITY_CAPACITY_MIN", 3),
		CityCapacityMax:      getEnvInt("CITY_CAPACITY_MAX", 10),
		CountryCapacityMin:   getEnvInt("COUNTRY_CAPACITY_MIN", 30),
		CountryCapacityMax:   getEnvInt("COUNTRY_CAPACITY_MAX", 100),
		MaxRouteStops:        getEnvInt("MAX_ROUTE_STOPS", 5),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	if cfg.AMQPURL == "" {
		missing = append(missing, "AMQP_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	if cfg.CityCapacityMin < 1 || cfg.CityCapacityMax < cfg.CityCapacityMin {
		return Config{}, fmt.Errorf("invalid city capacity band [%d, %d]", cfg.CityCapacityMin, cfg.CityCapacityMax)
	}
	if cfg.CountryCapacityMin < 1 || cfg.CountryCapacityMax < cfg.CountryCapacityMin {
		return Config{}, fmt.Errorf("invalid country capacity band [%d, %d]", cfg.CountryCapacityMin, cfg.CountryCapacityMax)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses the environment variable named by key as an integer,
// falling back when unset or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration parses the environment variable named by key as a
// time.Duration (e.g. "500ms", "3s"), falling back when unset or unparseable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
