package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
	PipelineWorkers    int

	// Aviation weather report retrieval.
	AWCBaseURL    string
	AWCTimeout    time.Duration
	AWCCacheSize  int
	AWCCacheTTL   time.Duration
	AWCMaxRetries int

	// Bounds of the ground wind drawn when a report has none.
	MinWind int
	MaxWind int

	WatchSchedule string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	awcTimeout, err := parsePositiveDuration("AWC_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	awcCacheTTL, err := parsePositiveDuration("AWC_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	awcCacheSize, err := parseInt("AWC_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	awcMaxRetries, err := parseInt("AWC_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("PIPELINE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	minWind, err := parseInt("MIN_WIND", 0)
	if err != nil {
		return nil, err
	}
	maxWind, err := parseInt("MAX_WIND", 40)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "miz-edit-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "miz-edit-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "miz-weather"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		PipelineWorkers:    workers,

		AWCBaseURL:    sharedcfg.EnvOrDefault("AWC_BASE_URL", "https://aviationweather.gov/api/data"),
		AWCTimeout:    awcTimeout,
		AWCCacheSize:  awcCacheSize,
		AWCCacheTTL:   awcCacheTTL,
		AWCMaxRetries: awcMaxRetries,

		MinWind: minWind,
		MaxWind: maxWind,

		WatchSchedule: sharedcfg.EnvOrDefault("WATCH_SCHEDULE", "*/30 * * * *"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if u, err := url.Parse(c.AWCBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid AWC_BASE_URL %q", c.AWCBaseURL)
	}
	if c.PipelineWorkers <= 0 {
		return errors.New("PIPELINE_WORKERS must be positive")
	}
	if c.AWCCacheSize <= 0 {
		return errors.New("AWC_CACHE_SIZE must be positive")
	}
	if c.AWCMaxRetries < 0 {
		return errors.New("AWC_MAX_RETRIES must not be negative")
	}
	if c.MinWind < 0 || c.MaxWind > 50 || c.MinWind > c.MaxWind {
		return fmt.Errorf("MIN_WIND (%d) and MAX_WIND (%d) must satisfy 0 <= MIN_WIND <= MAX_WIND <= 50", c.MinWind, c.MaxWind)
	}
	if _, err := cron.ParseStandard(c.WatchSchedule); err != nil {
		return fmt.Errorf("invalid WATCH_SCHEDULE %q: %w", c.WatchSchedule, err)
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
