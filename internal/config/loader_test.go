package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Pipeline.RetrievalTopK != 3 {
		t.Errorf("expected retrieval top-k 3, got %d", cfg.Pipeline.RetrievalTopK)
	}
	if cfg.Pipeline.Capabilities != "heuristic" {
		t.Errorf("expected heuristic capabilities, got %s", cfg.Pipeline.Capabilities)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
postgres:
  max_conns: 20
logging:
  level: "debug"
pipeline:
  capabilities: "llm"
  run_timeout: 45s
  retrieval_top_k: 5
knowledge:
  source: "postgres"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Pipeline.Capabilities != "llm" {
		t.Errorf("expected llm capabilities, got %s", cfg.Pipeline.Capabilities)
	}
	if cfg.Pipeline.RunTimeout != 45*time.Second {
		t.Errorf("expected run timeout 45s, got %v", cfg.Pipeline.RunTimeout)
	}
	if cfg.Pipeline.RetrievalTopK != 5 {
		t.Errorf("expected top-k 5, got %d", cfg.Pipeline.RetrievalTopK)
	}
	if cfg.Knowledge.Source != "postgres" {
		t.Errorf("expected knowledge source postgres, got %s", cfg.Knowledge.Source)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Pipeline.ReviewerTimeout != 10*time.Second {
		t.Errorf("expected default reviewer timeout, got %v", cfg.Pipeline.ReviewerTimeout)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TICKETFORGE_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("TICKETFORGE_PG_MAX_CONNS", "25")
	t.Setenv("TICKETFORGE_LOG_LEVEL", "warn")
	t.Setenv("TICKETFORGE_BREAKER_TIMEOUT", "1m")
	t.Setenv("TICKETFORGE_RUN_TIMEOUT", "12s")
	t.Setenv("TICKETFORGE_RETRIEVAL_TOP_K", "7")
	t.Setenv("TICKETFORGE_MAX_CONCURRENT_RUNS", "4")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Pipeline.RunTimeout != 12*time.Second {
		t.Errorf("expected run timeout 12s, got %v", cfg.Pipeline.RunTimeout)
	}
	if cfg.Pipeline.RetrievalTopK != 7 {
		t.Errorf("expected top-k 7, got %d", cfg.Pipeline.RetrievalTopK)
	}
	if cfg.Pipeline.MaxConcurrentRuns != 4 {
		t.Errorf("expected max concurrent runs 4, got %d", cfg.Pipeline.MaxConcurrentRuns)
	}
}

func TestEnvOverrideIgnoresUnparsable(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TICKETFORGE_RUN_TIMEOUT", "soon")
	t.Setenv("TICKETFORGE_RETRIEVAL_TOP_K", "three")

	loadEnv(&cfg)

	if cfg.Pipeline.RunTimeout != 30*time.Second {
		t.Errorf("expected default run timeout, got %v", cfg.Pipeline.RunTimeout)
	}
	if cfg.Pipeline.RetrievalTopK != 3 {
		t.Errorf("expected default top-k, got %d", cfg.Pipeline.RetrievalTopK)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "empty NATS URL",
			modify: func(c *Config) { c.NATS.URL = "" },
			errMsg: "nats.url is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "unknown capabilities",
			modify: func(c *Config) { c.Pipeline.Capabilities = "magic" },
			errMsg: `pipeline.capabilities must be heuristic or llm, got "magic"`,
		},
		{
			name:   "zero run timeout",
			modify: func(c *Config) { c.Pipeline.RunTimeout = 0 },
			errMsg: "pipeline.run_timeout must be > 0",
		},
		{
			name:   "zero responder timeout",
			modify: func(c *Config) { c.Pipeline.ResponderTimeout = 0 },
			errMsg: "pipeline.responder_timeout must be > 0",
		},
		{
			name:   "zero top-k",
			modify: func(c *Config) { c.Pipeline.RetrievalTopK = 0 },
			errMsg: "pipeline.retrieval_top_k must be >= 1",
		},
		{
			name:   "zero concurrency",
			modify: func(c *Config) { c.Pipeline.MaxConcurrentRuns = 0 },
			errMsg: "pipeline.max_concurrent_runs must be >= 1",
		},
		{
			name:   "file source without path",
			modify: func(c *Config) { c.Knowledge.Path = "" },
			errMsg: "knowledge.path is required when knowledge.source is file",
		},
		{
			name:   "unknown knowledge source",
			modify: func(c *Config) { c.Knowledge.Source = "s3" },
			errMsg: `knowledge.source must be file or postgres, got "s3"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromWrapsValidationError(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("pipeline:\n  retrieval_top_k: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(yamlPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "config validate:") {
		t.Errorf("expected config validate prefix, got %q", err.Error())
	}
}
