package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "ticketforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TICKETFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "TICKETFORGE_CORS_ORIGIN")
	setString(&cfg.Server.APIKeyHash, "TICKETFORGE_API_KEY_HASH")
	setInt64(&cfg.Server.MaxRequestBody, "TICKETFORGE_MAX_REQUEST_BODY")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TICKETFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TICKETFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TICKETFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TICKETFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TICKETFORGE_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")

	setString(&cfg.Logging.Level, "TICKETFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TICKETFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TICKETFORGE_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "TICKETFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TICKETFORGE_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "TICKETFORGE_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TICKETFORGE_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TICKETFORGE_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TICKETFORGE_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "TICKETFORGE_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "TICKETFORGE_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "TICKETFORGE_CACHE_L2_TTL")
	setString(&cfg.Cache.IdempotencyBucket, "TICKETFORGE_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Cache.IdempotencyTTL, "TICKETFORGE_IDEMPOTENCY_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "TICKETFORGE_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "TICKETFORGE_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.Sampling, "TICKETFORGE_OTEL_SAMPLING")

	// Pipeline
	setString(&cfg.Pipeline.Capabilities, "TICKETFORGE_CAPABILITIES")
	setDuration(&cfg.Pipeline.RunTimeout, "TICKETFORGE_RUN_TIMEOUT")
	setDuration(&cfg.Pipeline.ClassifierTimeout, "TICKETFORGE_CLASSIFIER_TIMEOUT")
	setDuration(&cfg.Pipeline.PriorityTimeout, "TICKETFORGE_PRIORITY_TIMEOUT")
	setDuration(&cfg.Pipeline.SentimentTimeout, "TICKETFORGE_SENTIMENT_TIMEOUT")
	setDuration(&cfg.Pipeline.RetrieverTimeout, "TICKETFORGE_RETRIEVER_TIMEOUT")
	setDuration(&cfg.Pipeline.ResponderTimeout, "TICKETFORGE_RESPONDER_TIMEOUT")
	setDuration(&cfg.Pipeline.ReviewerTimeout, "TICKETFORGE_REVIEWER_TIMEOUT")
	setInt(&cfg.Pipeline.RetrievalTopK, "TICKETFORGE_RETRIEVAL_TOP_K")
	setInt64(&cfg.Pipeline.MaxConcurrentRuns, "TICKETFORGE_MAX_CONCURRENT_RUNS")
	setString(&cfg.Pipeline.ClassifierModel, "TICKETFORGE_CLASSIFIER_MODEL")
	setString(&cfg.Pipeline.ResponderModel, "TICKETFORGE_RESPONDER_MODEL")
	setString(&cfg.Pipeline.ReviewerModel, "TICKETFORGE_REVIEWER_MODEL")
	setDuration(&cfg.Pipeline.CacheTTL, "TICKETFORGE_CACHE_TTL")

	// Knowledge
	setString(&cfg.Knowledge.Source, "TICKETFORGE_KNOWLEDGE_SOURCE")
	setString(&cfg.Knowledge.Path, "TICKETFORGE_KNOWLEDGE_PATH")

	// MCP
	setBool(&cfg.MCP.Enabled, "TICKETFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "TICKETFORGE_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "TICKETFORGE_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return validatePipeline(&cfg.Pipeline, &cfg.Knowledge)
}

func validatePipeline(p *Pipeline, k *Knowledge) error {
	switch p.Capabilities {
	case "heuristic", "llm":
	default:
		return fmt.Errorf("pipeline.capabilities must be heuristic or llm, got %q", p.Capabilities)
	}
	if p.RunTimeout <= 0 {
		return errors.New("pipeline.run_timeout must be > 0")
	}
	timeouts := map[string]time.Duration{
		"pipeline.classifier_timeout": p.ClassifierTimeout,
		"pipeline.priority_timeout":   p.PriorityTimeout,
		"pipeline.sentiment_timeout":  p.SentimentTimeout,
		"pipeline.retriever_timeout":  p.RetrieverTimeout,
		"pipeline.responder_timeout":  p.ResponderTimeout,
		"pipeline.reviewer_timeout":   p.ReviewerTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if p.RetrievalTopK < 1 {
		return errors.New("pipeline.retrieval_top_k must be >= 1")
	}
	if p.MaxConcurrentRuns < 1 {
		return errors.New("pipeline.max_concurrent_runs must be >= 1")
	}
	switch k.Source {
	case "file":
		if k.Path == "" {
			return errors.New("knowledge.path is required when knowledge.source is file")
		}
	case "postgres":
	default:
		return fmt.Errorf("knowledge.source must be file or postgres, got %q", k.Source)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
