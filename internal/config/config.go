// Package config loads process configuration from the environment and the
// optional organizations file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Addr       string
	APIVersion string
	Livemode   bool

	SnapshotPath string

	LogLevel  string
	LogFormat string

	Webhook WebhookConfig
}

// WebhookConfig tunes the delivery pipeline.
type WebhookConfig struct {
	Concurrency int
	Delay       time.Duration
	QueueSize   int
	Timeout     time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "mock-services"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		Addr:         getenv("MOCK_ADDR", ":5775"),
		APIVersion:   getenv("MOCK_API_VERSION", "2018-05-21"),
		Livemode:     getenvBool("MOCK_LIVEMODE", false),
		SnapshotPath: getenv("MOCK_SNAPSHOT_PATH", ""),
		LogLevel:     getenv("MOCK_LOG_LEVEL", "info"),
		LogFormat:    getenv("MOCK_LOG_FORMAT", "json"),
		Webhook: WebhookConfig{
			Concurrency: int(getenvInt64("MOCK_WEBHOOK_CONCURRENCY", 1)),
			Delay:       time.Duration(getenvInt64("MOCK_WEBHOOK_DELAY_MS", 0)) * time.Millisecond,
			QueueSize:   int(getenvInt64("MOCK_WEBHOOK_QUEUE_SIZE", 1024)),
			Timeout:     time.Duration(getenvInt64("MOCK_WEBHOOK_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
