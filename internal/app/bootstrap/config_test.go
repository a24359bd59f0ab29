package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SERVICE_ID", "HTTP_PORT", "SERVICE_PORT", "GRPC_PORT",
		"DB_URL", "POSTGRES_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_MAX_CONNS",
		"RABBITMQ_URL", "RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_USER", "RABBITMQ_PASS",
		"RABBITMQ_QUEUE", "RABBITMQ_DLQ", "RABBITMQ_MAX_RETRIES",
		"REDIS_URL", "KAFKA_BROKERS", "MAX_UPLOAD_MB", "STATS_CACHE_SECONDS",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://u:p@db:5432/nfe?sslmode=disable")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("SERVICE_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("STATS_CACHE_SECONDS", "5")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.GRPCPort)
	assert.Equal(t, "notas_fiscais", cfg.Queue)
	assert.Equal(t, "notas_fiscais_dlq", cfg.DLQ)
	assert.Equal(t, "tax-calculation", cfg.TaxesQueue)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, uint(5), cfg.BrokerConnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.BrokerConnectDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.TaxesWebhookURL)
}

func TestLoadConfigComposesURLsFromParts(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "nfe")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "notas")
	t.Setenv("RABBITMQ_HOST", "mq")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://nfe:secret@db:5432/notas?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitURL)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  id: nfe-from-file
  http_port: 8100
dependencies:
  postgres_url: postgres://file/db
  rabbitmq_url: amqp://file/
queues:
  documents: docs
  max_retries: 5
upload:
  max_mb: 10
`), 0o600))
	t.Setenv("RABBITMQ_QUEUE", "docs-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "nfe-from-file", cfg.ServiceID)
	assert.Equal(t, 8100, cfg.HTTPPort)
	assert.Equal(t, "postgres://file/db", cfg.DatabaseURL)
	assert.Equal(t, "docs-env", cfg.Queue)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestLoadConfigRequiresEndpoints(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig("")
	require.ErrorContains(t, err, "DB_URL")

	t.Setenv("DB_URL", "postgres://x/y")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "RABBITMQ_URL")

	t.Setenv("RABBITMQ_URL", "amqp://x/")
	t.Setenv("RABBITMQ_MAX_RETRIES", "0")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "RABBITMQ_MAX_RETRIES")
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [unterminated"), 0o600))
	_, err := LoadConfig(path)
	require.ErrorContains(t, err, "parse config file")
}
