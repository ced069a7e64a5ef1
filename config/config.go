package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string

	// Marketplace backend
	BackendBaseURL  string
	BackendAPIToken string
	BackendTimeout  time.Duration

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubUUID         string
	TransactionChannel string

	// Snapshot configuration
	SnapshotTTL time.Duration

	// WatchGrace is how long after a deadline the watcher waits before
	// re-fetching, so the backend's own expiry runs first.
	WatchGrace time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// optional .env for local development
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		// Backend
		BackendBaseURL:  getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		BackendAPIToken: getEnv("BACKEND_API_TOKEN", ""),
		BackendTimeout:  getEnvAsDuration("BACKEND_TIMEOUT", "10s"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "ticket-engine"),
		TransactionChannel: getEnv("TRANSACTION_CHANNEL", "transaction-updates"),

		// Snapshots
		SnapshotTTL: getEnvAsDuration("SNAPSHOT_TTL", "24h"),

		// Watcher
		WatchGrace: getEnvAsDuration("WATCH_GRACE", "5s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
