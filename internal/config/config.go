package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Refresh scheduling.
	RefreshInterval     time.Duration
	RefreshStartupDelay time.Duration
	RefreshTimeout      time.Duration
	RefreshWorkers      int
	FetchSpacing        time.Duration

	// NASA POWER upstream.
	PowerBaseURL      string
	PowerCommunity    string
	PowerTimeout      time.Duration
	PowerLookbackDays int
	PowerMaxRetries   int
	PowerRetryBackoff time.Duration

	LocationsPath string

	// Prediction store.
	StoreBackend   string
	StoreDir       string
	PostgresURL    string
	StoreCacheSize int

	// Classifier: remote when ClassifierURL is set, otherwise the local model at ModelPath.
	ClassifierURL     string
	ClassifierTimeout time.Duration
	ModelPath         string

	// Optional snapshot publishing.
	KafkaBrokers []string
	KafkaTopic   string

	TracingEnabled     bool
	TracingServiceName string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PowerBaseURL:   sharedcfg.EnvOrDefault("POWER_BASE_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		PowerCommunity: sharedcfg.EnvOrDefault("POWER_COMMUNITY", "AG"),

		LocationsPath: os.Getenv("LOCATIONS_PATH"),

		StoreBackend: sharedcfg.EnvOrDefault("STORE_BACKEND", StoreFile),
		StoreDir:     sharedcfg.EnvOrDefault("STORE_DIR", "predictions"),
		PostgresURL:  os.Getenv("POSTGRES_URL"),

		ClassifierURL: os.Getenv("CLASSIFIER_URL"),
		ModelPath:     os.Getenv("MODEL_PATH"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "prediction-updates"),

		TracingEnabled:     os.Getenv("TRACING_ENABLED") == "true",
		TracingServiceName: sharedcfg.EnvOrDefault("TRACING_SERVICE_NAME", "flood-risk-refresher"),
	}

	durations := []struct {
		env  string
		def  string
		dest *time.Duration
	}{
		{"REFRESH_INTERVAL", "6h", &cfg.RefreshInterval},
		{"REFRESH_STARTUP_DELAY", "10s", &cfg.RefreshStartupDelay},
		{"REFRESH_TIMEOUT", "300s", &cfg.RefreshTimeout},
		{"FETCH_SPACING", "1s", &cfg.FetchSpacing},
		{"POWER_TIMEOUT", "30s", &cfg.PowerTimeout},
		{"POWER_RETRY_BACKOFF", "5s", &cfg.PowerRetryBackoff},
		{"CLASSIFIER_TIMEOUT", "10s", &cfg.ClassifierTimeout},
	}
	for _, d := range durations {
		v, err := parseDuration(d.env, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	ints := []struct {
		env      string
		def      int
		min, max int
		dest     *int
	}{
		{"REFRESH_WORKERS", 1, 1, 16, &cfg.RefreshWorkers},
		{"POWER_LOOKBACK_DAYS", 7, 1, 30, &cfg.PowerLookbackDays},
		{"POWER_MAX_RETRIES", 3, 1, 10, &cfg.PowerMaxRetries},
		{"STORE_CACHE_SIZE", 512, 0, 100000, &cfg.StoreCacheSize},
	}
	for _, n := range ints {
		v, err := parseIntInRange(n.env, n.def, n.min, n.max)
		if err != nil {
			return nil, err
		}
		*n.dest = v
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PublishEnabled reports whether snapshot updates should be published to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFile:
		if c.StoreDir == "" {
			return errors.New("STORE_DIR is required for the file store")
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return errors.New("STORE_BACKEND is postgres but POSTGRES_URL is not set")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", c.StoreBackend, StoreFile, StorePostgres)
	}
	if c.ClassifierURL == "" && c.ModelPath == "" {
		return errors.New("one of CLASSIFIER_URL or MODEL_PATH is required")
	}
	if c.PowerBaseURL == "" {
		return errors.New("POWER_BASE_URL is required")
	}
	if c.PublishEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parseDuration(env, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(env, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", env, s)
	}
	// Only FETCH_SPACING and POWER_RETRY_BACKOFF may be zero.
	if d == 0 && env != "FETCH_SPACING" && env != "POWER_RETRY_BACKOFF" {
		return 0, fmt.Errorf("invalid %s %q: must be positive", env, s)
	}
	return d, nil
}

func parseIntInRange(env string, def, lo, hi int) (int, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s %q: must be an integer in [%d, %d]", env, s, lo, hi)
	}
	return n, nil
}
