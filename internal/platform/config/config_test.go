package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2022, cfg.Semaforo.CurrentFromYear)
	assert.Equal(t, 2018, cfg.Semaforo.AcceptableFromYear)
	assert.Equal(t, CacheBackendPostgres, cfg.Semaforo.CacheBackend)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"SEMAFORO_ADDR":       ":9090",
		"KAFKA_BROKERS":       "kafka-1:9092, kafka-2:9092,",
		"CACHE_BACKEND":       "redis",
		"REDIS_URL":           "redis://localhost:6379/0",
		"REFRESH_CONCURRENCY": "8",
		"REFRESH_MAX_RETRIES": "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, CacheBackendRedis, cfg.Semaforo.CacheBackend)
	assert.Equal(t, 8, cfg.Semaforo.RefreshConcurrency)
	assert.Equal(t, uint64(5), cfg.Semaforo.RefreshMaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_RejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"RULES_CURRENT_FROM_YEAR": "twenty",
		"REFRESH_MAX_RETRIES":     "-1",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RULES_CURRENT_FROM_YEAR")
	assert.Contains(t, err.Error(), "REFRESH_MAX_RETRIES")
}

func TestValidate(t *testing.T) {
	t.Run("redis backend needs url", func(t *testing.T) {
		cfg := Default()
		cfg.Semaforo.CacheBackend = CacheBackendRedis
		assert.ErrorContains(t, cfg.Validate(), "REDIS_URL")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := Default()
		cfg.Semaforo.CacheBackend = "memcached"
		assert.ErrorContains(t, cfg.Validate(), "unknown cache backend")
	})

	t.Run("thresholds must be ordered", func(t *testing.T) {
		cfg := Default()
		cfg.Semaforo.AcceptableFromYear = 2022
		assert.ErrorContains(t, cfg.Validate(), "acceptable_from_year")
	})

	t.Run("concurrency must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.Semaforo.RefreshConcurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "refresh_concurrency")
	})
}

func TestLoad_MergesYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semaforo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
  shutdown_timeout: 3s
semaforo:
  current_from_year: 2023
  acceptable_from_year: 2019
kafka:
  brokers: ["localhost:9092"]
`), 0o600))

	t.Setenv("SEMAFORO_CONFIG", path)
	t.Setenv("SEMAFORO_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2023, cfg.Semaforo.CurrentFromYear)
	assert.Equal(t, 2019, cfg.Semaforo.AcceptableFromYear)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "semaforo.audit", cfg.Kafka.Topic)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("SEMAFORO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "read config file")
}
