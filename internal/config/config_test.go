package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "model.yml", cfg.ModelFile)
	assert.Equal(t, "gql_config", cfg.ConfigDir)
	assert.Empty(t, cfg.EntityGroups)
	assert.False(t, cfg.ConfigWatch)
	assert.Equal(t, "prefer_reverse", cfg.CutPolicy)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 100, cfg.MaxNestedItems)
	assert.Equal(t, 10, cfg.MaxQueryDepth)
	assert.Equal(t, 5000, cfg.MaxQueryComplexity)
	assert.Equal(t, 8, cfg.MaxConcurrentRequests)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "crudgen-records", cfg.KafkaTopic)
	assert.Equal(t, "crudgen-api", cfg.KafkaGroupID)
	assert.False(t, cfg.KafkaBatch)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/mydb")
	t.Setenv("MODEL_FILE", "/etc/crudgen/model.yml")
	t.Setenv("CONFIG_DIR", "/etc/crudgen/gql_config")
	t.Setenv("ENTITY_GROUPS", "shop, blog ,,")
	t.Setenv("CONFIG_WATCH", "true")
	t.Setenv("CYCLE_CUT_POLICY", "closing_edge")
	t.Setenv("DEFAULT_PAGE_SIZE", "20")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("MAX_QUERY_DEPTH", "6")
	t.Setenv("MAX_CONCURRENT_REQUESTS", "2")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("KAFKA_BATCH", "1")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres://user:pass@db:5432/mydb", cfg.DatabaseURL)
	assert.Equal(t, "/etc/crudgen/model.yml", cfg.ModelFile)
	assert.Equal(t, "/etc/crudgen/gql_config", cfg.ConfigDir)
	assert.Equal(t, []string{"shop", "blog"}, cfg.EntityGroups)
	assert.True(t, cfg.ConfigWatch)
	assert.Equal(t, "closing_edge", cfg.CutPolicy)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, 6, cfg.MaxQueryDepth)
	assert.Equal(t, 2, cfg.MaxConcurrentRequests)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.True(t, cfg.KafkaBatch)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"BATCH_SIZE", "0", "BATCH_SIZE"},
		{"BATCH_FLUSH_INTERVAL", "bad", "BATCH_FLUSH_INTERVAL"},
		{"MAX_PAGE_SIZE", "-5", "MAX_PAGE_SIZE"},
		{"MAX_QUERY_DEPTH", "deep", "MAX_QUERY_DEPTH"},
		{"CONFIG_WATCH", "maybe", "CONFIG_WATCH"},
		{"CYCLE_CUT_POLICY", "random", "CYCLE_CUT_POLICY"},
		{"REQUEST_TIMEOUT", "0s", "REQUEST_TIMEOUT"},
		{"DEFAULT_PAGE_SIZE", "500", "DEFAULT_PAGE_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
