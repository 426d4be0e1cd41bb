package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Strob0t/TicketForge/internal/adapter/corpus"
	cfhttp "github.com/Strob0t/TicketForge/internal/adapter/http"
	"github.com/Strob0t/TicketForge/internal/adapter/litellm"
	cfmcp "github.com/Strob0t/TicketForge/internal/adapter/mcp"
	cfnats "github.com/Strob0t/TicketForge/internal/adapter/nats"
	"github.com/Strob0t/TicketForge/internal/adapter/natskv"
	cfotel "github.com/Strob0t/TicketForge/internal/adapter/otel"
	"github.com/Strob0t/TicketForge/internal/adapter/postgres"
	"github.com/Strob0t/TicketForge/internal/adapter/ristretto"
	"github.com/Strob0t/TicketForge/internal/adapter/tiered"
	"github.com/Strob0t/TicketForge/internal/adapter/ws"
	"github.com/Strob0t/TicketForge/internal/config"
	"github.com/Strob0t/TicketForge/internal/logger"
	"github.com/Strob0t/TicketForge/internal/middleware"
	"github.com/Strob0t/TicketForge/internal/port/cache"
	"github.com/Strob0t/TicketForge/internal/port/database"
	"github.com/Strob0t/TicketForge/internal/resilience"
	"github.com/Strob0t/TicketForge/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket hub and MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"capabilities", cfg.Pipeline.Capabilities,
		"knowledge_source", cfg.Knowledge.Source,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	store := postgres.NewStore(pool)

	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llm.SetBreaker(resilience.NewBreaker("litellm", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Knowledge ---

	kb := corpus.New(nil)
	loader := knowledgeLoader(cfg.Knowledge, store)
	if _, err := kb.Reload(ctx, loader); err != nil {
		slog.Warn("knowledge corpus unavailable, serving empty corpus", "error", err)
	}

	// --- Pipeline ---

	var capCache cache.Cache
	if cfg.Pipeline.Capabilities == "llm" {
		c, closeCache, err := buildCache(ctx, cfg, queue)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer closeCache()
		capCache = c
	}

	caps, err := buildCapabilities(cfg.Pipeline, llm, kb, capCache)
	if err != nil {
		return fmt.Errorf("capabilities: %w", err)
	}
	coord, err := service.NewCoordinator(caps, service.PipelineOptionsFromConfig(cfg.Pipeline))
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	coord.SetMetrics(metrics)

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()
	coord.AddObserver(service.NewProgressPublisher(queue))
	coord.AddObserver(service.NewBroadcastObserver(hub))

	// --- Services ---

	triageSvc := service.NewTriageService(coord, store, queue, cfg.Pipeline.MaxConcurrentRuns)
	triageSvc.SetBroadcaster(hub)
	triageSvc.SetMetrics(metrics)

	feedbackSvc := service.NewFeedbackService(store, queue)
	feedbackSvc.SetMetrics(metrics)
	stopFeedback, err := feedbackSvc.StartSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("feedback subscriber: %w", err)
	}
	defer stopFeedback()

	knowledgeSvc := service.NewKnowledgeService(kb, loader, store)

	// --- HTTP ---

	idemKV, err := queue.KeyValue(ctx, cfg.Cache.IdempotencyBucket, cfg.Cache.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}

	limiter, stopLimiter := middleware.NewRateLimiterFromConfig(cfg.Rate)
	defer stopLimiter()

	handlers := &cfhttp.Handlers{
		Triage:    triageSvc,
		Feedback:  feedbackSvc,
		Knowledge: knowledgeSvc,
		BodyLimit: cfg.Server.MaxRequestBody,
	}
	router := cfhttp.NewRouter(handlers, cfhttp.RouterOptions{
		Server:      cfg.Server,
		ServiceName: cfg.Logging.Service,
		RateLimiter: limiter,
		WebSocket:   hub.HandleWS,
		Checks: map[string]cfhttp.HealthCheck{
			"postgres": pool.Ping,
			"nats": func(context.Context) error {
				if !queue.IsConnected() {
					return errors.New("disconnected")
				}
				return nil
			},
		},
		Idempotency:    natskv.New(idemKV),
		IdempotencyTTL: cfg.Cache.IdempotencyTTL,
		RequestTimeout: cfg.Pipeline.RunTimeout + 5*time.Second,
	})

	// --- MCP ---

	if cfg.MCP.Enabled {
		mcpSrv := cfmcp.NewServer(cfmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    cfg.Logging.Service,
			Version: cfhttp.Version,
			APIKey:  cfg.MCP.APIKey,
		}, cfmcp.ServerDeps{
			Triage:    triageSvc,
			Runs:      triageSvc,
			Knowledge: kb,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mcpSrv.Stop(sctx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Pipeline.RunTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	return nil
}

// knowledgeLoader picks the corpus source named by cfg.
func knowledgeLoader(cfg config.Knowledge, store database.Store) corpus.Loader {
	if cfg.Source == "postgres" {
		return corpus.StoreLoader{Store: store}
	}
	return corpus.FileLoader{Path: cfg.Path}
}

// buildCache assembles the ristretto L1 over NATS KV L2 tiered cache used to
// memoize capability outputs.
func buildCache(ctx context.Context, cfg *config.Config, queue *cfnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, fmt.Errorf("l1: %w", err)
	}
	kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		l1.Close()
		return nil, nil, fmt.Errorf("l2: %w", err)
	}
	slog.Info("capability cache ready", "l1_mb", cfg.Cache.L1MaxSizeMB, "l2_bucket", cfg.Cache.L2Bucket)
	return tiered.New(l1, natskv.New(kv), cfg.Pipeline.CacheTTL), l1.Close, nil
}
