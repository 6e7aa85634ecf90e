package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds application settings loaded from environment variables.
type Config struct {
	Port        string
	DatabaseURL string

	ModelFile    string
	ConfigDir    string
	EntityGroups []string
	ConfigWatch  bool
	CutPolicy    string

	DefaultPageSize       int
	MaxPageSize           int
	MaxNestedItems        int
	MaxQueryDepth         int
	MaxQueryComplexity    int
	MaxConcurrentRequests int
	RequestTimeout        time.Duration

	KafkaBrokers       []string
	KafkaTopic         string
	KafkaGroupID       string
	KafkaBatch         bool
	BatchSize          int
	BatchFlushInterval time.Duration

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and returns it,
// or an error if required values are missing or invalid.
func Load() (*Config, error) {
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

	cfg := &Config{
		Port:               sharedcfg.EnvOrDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ModelFile:          sharedcfg.EnvOrDefault("MODEL_FILE", "model.yml"),
		ConfigDir:          sharedcfg.EnvOrDefault("CONFIG_DIR", "gql_config"),
		EntityGroups:       splitList(os.Getenv("ENTITY_GROUPS")),
		CutPolicy:          sharedcfg.EnvOrDefault("CYCLE_CUT_POLICY", "prefer_reverse"),
		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crudgen-records"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crudgen-api"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.ConfigWatch, err = parseBool("CONFIG_WATCH", false); err != nil {
		return nil, err
	}
	if cfg.KafkaBatch, err = parseBool("KAFKA_BATCH", false); err != nil {
		return nil, err
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"DEFAULT_PAGE_SIZE", 10, &cfg.DefaultPageSize},
		{"MAX_PAGE_SIZE", 100, &cfg.MaxPageSize},
		{"MAX_NESTED_ITEMS", 100, &cfg.MaxNestedItems},
		{"MAX_QUERY_DEPTH", 10, &cfg.MaxQueryDepth},
		{"MAX_QUERY_COMPLEXITY", 5000, &cfg.MaxQueryComplexity},
		{"MAX_CONCURRENT_REQUESTS", 8, &cfg.MaxConcurrentRequests},
	}
	for _, i := range ints {
		if *i.dest, err = parsePositiveInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	timeout := sharedcfg.EnvOrDefault("REQUEST_TIMEOUT", "30s")
	cfg.RequestTimeout, err = time.ParseDuration(timeout)
	if err != nil || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", timeout)
	}

	if cfg.DefaultPageSize > cfg.MaxPageSize {
		return nil, errors.New("DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}
	if cfg.CutPolicy != "prefer_reverse" && cfg.CutPolicy != "closing_edge" {
		return nil, fmt.Errorf("invalid CYCLE_CUT_POLICY %q", cfg.CutPolicy)
	}
	if cfg.ModelFile == "" {
		return nil, errors.New("MODEL_FILE is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the record ingest consumer should run.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func parsePositiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, raw)
	}
	return b, nil
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
