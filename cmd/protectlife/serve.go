package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/ProtectLife/config"
	"github.com/rajasatyajit/ProtectLife/internal/api"
	"github.com/rajasatyajit/ProtectLife/internal/assistant"
	"github.com/rajasatyajit/ProtectLife/internal/auth"
	"github.com/rajasatyajit/ProtectLife/internal/database"
	"github.com/rajasatyajit/ProtectLife/internal/events"
	"github.com/rajasatyajit/ProtectLife/internal/gateway"
	"github.com/rajasatyajit/ProtectLife/internal/jobs"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
	middlewares "github.com/rajasatyajit/ProtectLife/internal/middleware"
	"github.com/rajasatyajit/ProtectLife/internal/ratelimit"
	"github.com/rajasatyajit/ProtectLife/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// loadConfig loads configuration and initializes the logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.EnvFile != "" {
		logger.Debug("Loaded environment file", "path", cfg.EnvFile)
	}
	return cfg, nil
}

func gatewayConfig(cfg config.AIConfig) gateway.Config {
	return gateway.Config{
		APIKey:             cfg.APIKey,
		BaseURL:            cfg.BaseURL,
		Model:              cfg.Model,
		TranscriptionModel: cfg.TranscriptionModel,
		Timeout:            cfg.Timeout,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		MaxConcurrent:      cfg.MaxConcurrent,
	}
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Starting Protect Life API",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	reportStore := store.New(db)
	if pg, ok := reportStore.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	gw := gateway.New(gatewayConfig(cfg.AI))
	if !gateway.Enabled(gw) {
		logger.Warn("OPENAI_API_KEY not set; AI endpoints answer from local rules only")
	}

	var limiter *ratelimit.Manager
	if cfg.Redis.URL != "" {
		limiter, err = ratelimit.NewManager(ctx, ratelimit.Options{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// the AI limiter is optional; the in-memory limiter still applies
			logger.Warn("Redis unavailable; AI rate limiting disabled", "error", err)
			limiter = nil
		} else {
			defer limiter.Close()
		}
	}

	var publisher events.Publisher = events.NoOp{}
	if cfg.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.ClientName)
		if err != nil {
			logger.Warn("NATS unavailable; report events disabled", "error", err)
		} else {
			publisher = nats
		}
	}
	defer publisher.Close()

	verifier, err := auth.NewVerifier(cfg.Moderation.KeyHashes)
	if err != nil {
		return fmt.Errorf("invalid MODERATOR_KEY_HASHES: %w", err)
	}
	if !verifier.Enabled() {
		logger.Warn("No moderator keys configured; moderation endpoints reject every request")
	}

	handler := api.NewHandler(api.Options{
		Store:               reportStore,
		Assistant:           assistant.New(gw),
		Events:              publisher,
		Limiter:             limiter,
		Verifier:            verifier,
		ModeratorHeader:     cfg.Moderation.Header,
		AIRequestsPerMinute: cfg.RateLimit.AIRequestsPerMinute,
		Version:             Version,
		BuildTime:           BuildTime,
		GitCommit:           GitCommit,
	})

	r := newRouter(cfg, handler)

	runner, err := newJobRunner(ctx, cfg, db, reportStore, publisher, limiter)
	if err != nil {
		return err
	}
	if runner != nil {
		go func() { _ = runner.Run(ctx) }()
	}

	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
	return nil
}

// newJobRunner assembles the background jobs enabled by cfg. It returns nil
// when there is nothing to run.
func newJobRunner(ctx context.Context, cfg *config.Config, db *database.DB, st store.Store, pub events.Publisher, limiter *ratelimit.Manager) (*jobs.Runner, error) {
	var list []jobs.Job
	if cfg.Jobs.ReportTTL > 0 {
		list = append(list, jobs.NewReportExpiry(st, pub, cfg.Jobs.ReportTTL, cfg.Jobs.ExpiryInterval))
	}
	if limiter != nil && db.IsConfigured() {
		flush := jobs.NewUsageFlush(limiter, db, cfg.Jobs.UsageFlushInterval)
		if err := flush.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to apply usage schema: %w", err)
		}
		list = append(list, flush)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return jobs.NewRunner(cfg.Jobs.RetryDelay, len(list), list...), nil
}

// newRouter builds the chi router with the global middleware chain
func newRouter(cfg *config.Config, handler *api.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.Server.AllowedOrigins))
	r.Use(middlewares.RateLimit(cfg.RateLimit.RequestsPerMinute))

	handler.RegisterRoutes(r)
	return r
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
