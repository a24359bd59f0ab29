package bootstrap

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration shared by the api, worker and
// taxes-worker binaries.
type Config struct {
	ServiceID string
	Version   string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32

	RabbitURL             string
	Queue                 string
	DLQ                   string
	TaxesQueue            string
	TaxesDLQ              string
	MaxRetries            int
	BrokerConnectAttempts uint
	BrokerConnectDelay    time.Duration

	ClassificationURL     string
	ClassificationTimeout time.Duration
	TaxesWebhookURL       string
	TaxesWebhookTimeout   time.Duration

	RedisURL      string
	StatsCacheTTL time.Duration

	KafkaBrokers                []string
	KafkaTopicDocumentPersisted string
	KafkaTopicTaxesCalculated   string

	MaxUploadBytes int64
	ICMSRate       string
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		Version  string `yaml:"version"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RabbitMQURL string `yaml:"rabbitmq_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Queues struct {
		Documents  string `yaml:"documents"`
		DocumentsDLQ string `yaml:"documents_dlq"`
		Taxes      string `yaml:"taxes"`
		TaxesDLQ   string `yaml:"taxes_dlq"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"queues"`
	Webhooks struct {
		ClassificationURL string `yaml:"classification_url"`
		TaxesURL          string `yaml:"taxes_url"`
	} `yaml:"webhooks"`
	Kafka struct {
		Brokers []string          `yaml:"brokers"`
		Topics  map[string]string `yaml:"topics"`
	} `yaml:"kafka"`
	Upload struct {
		MaxMB int `yaml:"max_mb"`
	} `yaml:"upload"`
	Taxes struct {
		ICMSRate string `yaml:"icms_rate"`
	} `yaml:"taxes"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "nfe-load-service",
		Version:               "1.0.0",
		HTTPPort:              8001,
		GRPCPort:              9091,
		MaxDBConns:            10,
		Queue:                 "notas_fiscais",
		DLQ:                   "notas_fiscais_dlq",
		TaxesQueue:            "tax-calculation",
		TaxesDLQ:              "tax-calculation_dlq",
		MaxRetries:            3,
		BrokerConnectAttempts: 5,
		BrokerConnectDelay:    2 * time.Second,
		ClassificationURL:     "http://localhost:5678/webhook-test/nf-input",
		ClassificationTimeout: 30 * time.Second,
		TaxesWebhookTimeout:   300 * time.Second,
		StatsCacheTTL:         30 * time.Second,
		MaxUploadBytes:        50 << 20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.HTTPPort = envInt("HTTP_PORT", envInt("SERVICE_PORT", cfg.HTTPPort))
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = composeDatabaseURL()
	}
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.RabbitURL = envOrDefault("RABBITMQ_URL", cfg.RabbitURL)
	if cfg.RabbitURL == "" {
		cfg.RabbitURL = composeRabbitURL()
	}
	cfg.Queue = envOrDefault("RABBITMQ_QUEUE", cfg.Queue)
	cfg.DLQ = envOrDefault("RABBITMQ_DLQ", cfg.DLQ)
	cfg.TaxesQueue = envOrDefault("RABBITMQ_TAXES_QUEUE", cfg.TaxesQueue)
	cfg.TaxesDLQ = envOrDefault("RABBITMQ_TAXES_DLQ", cfg.TaxesDLQ)
	cfg.MaxRetries = envInt("RABBITMQ_MAX_RETRIES", cfg.MaxRetries)
	cfg.BrokerConnectAttempts = uint(envInt("RABBITMQ_CONNECT_ATTEMPTS", int(cfg.BrokerConnectAttempts)))
	cfg.BrokerConnectDelay = time.Duration(envInt("RABBITMQ_CONNECT_DELAY_SECONDS", int(cfg.BrokerConnectDelay.Seconds()))) * time.Second

	cfg.ClassificationURL = envOrDefault("CLASSIFICATION_SERVICE_URL", cfg.ClassificationURL)
	cfg.ClassificationTimeout = time.Duration(envInt("CLASSIFICATION_TIMEOUT_SECONDS", int(cfg.ClassificationTimeout.Seconds()))) * time.Second
	cfg.TaxesWebhookURL = envOrDefault("TAXES_WEBHOOK_URL", cfg.TaxesWebhookURL)
	cfg.TaxesWebhookTimeout = time.Duration(envInt("TAXES_WEBHOOK_TIMEOUT_SECONDS", int(cfg.TaxesWebhookTimeout.Seconds()))) * time.Second

	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.StatsCacheTTL = time.Duration(envInt("STATS_CACHE_SECONDS", int(cfg.StatsCacheTTL.Seconds()))) * time.Second

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicDocumentPersisted = envOrDefault("KAFKA_TOPIC_DOCUMENT_PERSISTED", cfg.KafkaTopicDocumentPersisted)
	cfg.KafkaTopicTaxesCalculated = envOrDefault("KAFKA_TOPIC_TAXES_CALCULATED", cfg.KafkaTopicTaxesCalculated)

	cfg.MaxUploadBytes = int64(envInt("MAX_UPLOAD_MB", int(cfg.MaxUploadBytes>>20))) << 20
	cfg.ICMSRate = envOrDefault("ICMS_RATE", cfg.ICMSRate)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RabbitURL == "" {
		return Config{}, fmt.Errorf("missing RABBITMQ_URL")
	}
	if cfg.MaxRetries < 1 {
		return Config{}, fmt.Errorf("RABBITMQ_MAX_RETRIES must be at least 1")
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.Version != "" {
		cfg.Version = f.Service.Version
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RabbitMQURL != "" {
		cfg.RabbitURL = f.Dependencies.RabbitMQURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Queues.Documents != "" {
		cfg.Queue = f.Queues.Documents
	}
	if f.Queues.DocumentsDLQ != "" {
		cfg.DLQ = f.Queues.DocumentsDLQ
	}
	if f.Queues.Taxes != "" {
		cfg.TaxesQueue = f.Queues.Taxes
	}
	if f.Queues.TaxesDLQ != "" {
		cfg.TaxesDLQ = f.Queues.TaxesDLQ
	}
	if f.Queues.MaxRetries > 0 {
		cfg.MaxRetries = f.Queues.MaxRetries
	}
	if f.Webhooks.ClassificationURL != "" {
		cfg.ClassificationURL = f.Webhooks.ClassificationURL
	}
	if f.Webhooks.TaxesURL != "" {
		cfg.TaxesWebhookURL = f.Webhooks.TaxesURL
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if topic := f.Kafka.Topics["document_persisted"]; topic != "" {
		cfg.KafkaTopicDocumentPersisted = topic
	}
	if topic := f.Kafka.Topics["taxes_calculated"]; topic != "" {
		cfg.KafkaTopicTaxesCalculated = topic
	}
	if f.Upload.MaxMB > 0 {
		cfg.MaxUploadBytes = int64(f.Upload.MaxMB) << 20
	}
	if f.Taxes.ICMSRate != "" {
		cfg.ICMSRate = f.Taxes.ICMSRate
	}
}

// composeDatabaseURL builds a postgres URL from discrete DB_* variables. It
// returns "" when DB_HOST is unset.
func composeDatabaseURL() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envOrDefault("DB_USER", "postgres"), envOrDefault("DB_PASSWORD", "postgres")),
		Host:     host + ":" + envOrDefault("DB_PORT", "5432"),
		Path:     "/" + envOrDefault("DB_NAME", "nfe_db"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func composeRabbitURL() string {
	host := os.Getenv("RABBITMQ_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(envOrDefault("RABBITMQ_USER", "guest"), envOrDefault("RABBITMQ_PASS", "guest")),
		Host:   host + ":" + envOrDefault("RABBITMQ_PORT", "5672"),
		Path:   "/",
	}
	return u.String()
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
