package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/samujjwal/stayhub/internal/analytics"
	"github.com/samujjwal/stayhub/internal/api"
	"github.com/samujjwal/stayhub/internal/audit"
	"github.com/samujjwal/stayhub/internal/config"
	"github.com/samujjwal/stayhub/internal/db"
	"github.com/samujjwal/stayhub/internal/middleware"
	"github.com/samujjwal/stayhub/internal/moderation"
	"github.com/samujjwal/stayhub/internal/observability"
	"github.com/samujjwal/stayhub/internal/queue"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer store.Close()

	metricsRegistry := observability.NewPrometheusRegistry()

	var analyticsSvc analytics.AnalyticsService
	if cfg.AnalyticsEnabled {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer ch.Close()
		analyticsSvc = ch
	}

	ledger := audit.NewLedger(pg, cfg.HistoryLimit, cfg.RecentWindow)
	reviewQueue := queue.NewReviewQueue(pg, ledger, analyticsSvc, metricsRegistry, logger, cfg.QueuePageSize)

	// Swap the rule-based classifier or the image backend here to change
	// how content is scored without touching the decision engine.
	textClassifier := moderation.NewRuleTextClassifier(cfg.PlatformDomain)
	var imageBackend moderation.ImageBackend
	if cfg.ImageBackendURL != "" {
		imageBackend = moderation.NewRemoteImageBackend(cfg.ImageBackendURL, cfg.ClassifierTimeout)
	}
	imageClassifier := moderation.NewProbeImageClassifier(cfg.ImageProbeTimeout, imageBackend, logger)
	velocity := moderation.NewReviewVelocity(store, cfg.ReviewBombWindow, logger)

	engine := moderation.NewEngine(textClassifier, imageClassifier, velocity,
		reviewQueue, ledger, analyticsSvc, metricsRegistry, logger, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(logger))
	srvDeps := api.NewServer(logger, engine, reviewQueue, ledger, textClassifier, metricsRegistry, cfg)
	srvDeps.RegisterRoutes(r)

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, "moderation")
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Moderation server running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
