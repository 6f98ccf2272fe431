package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Schemes accepted by the geocoding layer.
const (
	SchemeAMap    = "amap"
	SchemeOffline = "offline"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage paths.
	DBPath           string
	CachePath        string
	OfflineTablePath string

	// XLSX record intake.
	DataDir  string
	DataGlob string

	// Address derivation: payload columns concatenated in order.
	AddressFields []string

	// Geocoding.
	Scheme      string // default backend: amap | offline
	AMapKey     string
	AMapTimeout time.Duration

	// Kafka record intake (optional; enabled when brokers are set).
	KafkaBrokers      []string
	KafkaTopic        string
	KafkaGroupID      string
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is folded in first, without
// overriding real environment variables.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	amapTimeout, err := parseDuration("AMAP_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	kafkaBatchTimeout, err := parseDuration("KAFKA_BATCH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	kafkaBatchSize, err := parseInt("KAFKA_BATCH_SIZE", 500, 1, 100000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:           envOrDefault("DB_PATH", "output/waterpoint.db"),
		CachePath:        envOrDefault("GEO_CACHE_PATH", "output/geo_cache.json"),
		OfflineTablePath: envOrDefault("OFFLINE_TABLE_PATH", "output/geo_cache.csv"),

		DataDir:  envOrDefault("DATA_DIR", "output"),
		DataGlob: envOrDefault("DATA_GLOB", "water_info_*.xlsx"),

		AddressFields: splitList(envOrDefault("ADDRESS_FIELDS", "省份,断面名称")),

		Scheme:      envOrDefault("GEOCODE_SCHEME", SchemeAMap),
		AMapKey:     os.Getenv("AMAP_KEY"),
		AMapTimeout: amapTimeout,

		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envOrDefault("KAFKA_TOPIC", "raw-water-reports"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "waterpoint-ingest"),
		KafkaBatchSize:    kafkaBatchSize,
		KafkaBatchTimeout: kafkaBatchTimeout,
	}

	if cfg.Scheme != SchemeAMap && cfg.Scheme != SchemeOffline {
		return nil, fmt.Errorf("GEOCODE_SCHEME must be %q or %q, got %q", SchemeAMap, SchemeOffline, cfg.Scheme)
	}
	if len(cfg.AddressFields) == 0 {
		return nil, errors.New("ADDRESS_FIELDS must name at least one column")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the Kafka record intake is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, def, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s %q (must be %d..%d)", key, raw, min, max)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
