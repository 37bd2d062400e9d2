// Package main is the entrypoint for the Farmer's Desk API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/ai"
	"github.com/kiranshivaraju/farmdesk/internal/api"
	"github.com/kiranshivaraju/farmdesk/internal/api/handler"
	mw "github.com/kiranshivaraju/farmdesk/internal/api/middleware"
	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/internal/farm"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/internal/metrics"
	"github.com/kiranshivaraju/farmdesk/internal/planning"
	"github.com/kiranshivaraju/farmdesk/internal/prediction"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/weather"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

const (
	shutdownTimeout = 30 * time.Second
	weatherCacheTTL = 30 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config. Fail fast on invalid config.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"store", cfg.Store.Backend, "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the document store
	s, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("store ready", "backend", cfg.Store.Backend)

	// 3. Cache, falling back to memory when Redis is not configured
	c, err := openCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer c.Close()

	// 4. Job registry
	reg := newRegistry(cfg.Jobs, c)

	// 5. AI provider. "template" yields nil and all generation uses templates.
	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	slog.Info("AI provider initialized", "provider", providerName(provider))

	// 6. Services
	pool := worker.NewPool(cfg.Server.WorkerConcurrency)
	adv := advisor.New(provider, cfg.AI.InferenceTimeout)
	wp := weather.NewCached(weather.NewHTTPClient(cfg.Weather), c, weatherCacheTTL)
	initializer := farm.NewInitializer(s, reg, adv, wp, pool)
	plans := planning.NewService(s, adv, pool, cfg.Plans.GenerationTimeout)
	predictions := prediction.NewService(s, adv, pool)

	// 7. Build router with dependencies
	auth := mw.NewAuth(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	rateLimit := mw.NewRateLimit(c, cfg.Server.RateLimitPerMin)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": s,
			"cache":    c,
		}, providerName(provider)),
		MetricsHandler: metrics.Handler(),

		RegisterHandler: handler.NewRegisterHandler(s, auth),
		LoginHandler:    handler.NewLoginHandler(s, auth),
		MeHandler:       handler.NewMeHandler(s),

		InitializeFarmHandler:       handler.NewInitializeFarmHandler(initializer),
		InitializationStatusHandler: handler.NewInitializationStatusHandler(reg),

		ListFieldsHandler:    handler.NewListFieldsHandler(s),
		ListTasksHandler:     handler.NewListTasksHandler(s),
		UpdateTaskHandler:    handler.NewUpdateTaskHandler(s),
		ListAlertsHandler:    handler.NewListAlertsHandler(s),
		MarkAlertReadHandler: handler.NewMarkAlertReadHandler(s),

		CreatePlanHandler:       handler.NewCreatePlanHandler(plans),
		ListPlansHandler:        handler.NewListPlansHandler(plans),
		GetPlanHandler:          handler.NewGetPlanHandler(plans),
		PlanStatusHandler:       handler.NewPlanStatusHandler(plans),
		UpdatePlanStatusHandler: handler.NewUpdatePlanStatusHandler(plans),
		UpdatePlanTaskHandler:   handler.NewUpdatePlanTaskHandler(plans),
		RegeneratePlanHandler:   handler.NewRegeneratePlanHandler(plans),

		RequestYieldHandler:    handler.NewRequestYieldHandler(predictions),
		GetPredictionHandler:   handler.NewGetPredictionHandler(predictions),
		ListPredictionsHandler: handler.NewListPredictionsHandler(predictions),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Stop accepting requests first, then let background work finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		slog.Warn("background work cancelled at shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openStore returns the configured store and a function releasing its
// connections.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := store.RunMigrations(cfg.Database.URL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return store.NewPostgresStore(pool), pool.Close, nil
	case "firestore":
		client, err := store.NewFirestoreClient(ctx, cfg.Store.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("connect firestore: %w", err)
		}
		return store.NewFirestoreStore(client), func() { _ = client.Close() }, nil
	case "memory":
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, error) {
	if cfg.URL == "" {
		slog.Info("REDIS_URL not set, using in-memory cache")
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, nil
}

func newRegistry(cfg config.JobsConfig, c cache.Cache) jobs.Registry {
	if cfg.Registry == "redis" {
		return jobs.NewRedisRegistry(c, cfg.ExpireAfter)
	}
	return jobs.NewMemoryRegistry(cfg.ExpireAfter)
}

func providerName(p models.AIProvider) string {
	if p == nil {
		return "template"
	}
	return p.Name()
}
