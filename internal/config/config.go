package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// DatabaseURL is the Postgres DSN. Required for non-dry runs only; dry
	// runs never touch the datastore.
	DatabaseURL string

	// KafkaBrokers enables the canonical-record mirror sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// MetricsAddr starts the health/metrics HTTP server when non-empty.
	MetricsAddr string

	LogLevel  string
	LogFormat string

	// DataDir confines input file paths when non-empty.
	DataDir string

	BatchSize    int
	FetchTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	batchSize, err := envInt("BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}

	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	if fetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}

	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: splitBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "heritage-records"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
		DataDir:      os.Getenv("DATA_DIR"),
		BatchSize:    batchSize,
		FetchTimeout: fetchTimeout,
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func splitBrokers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
