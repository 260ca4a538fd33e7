package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/config"
	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/handler"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/backend"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/cache"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("timezone", cfg.Timezone),
		zap.Int("reminder_window_days", cfg.ReminderWindowDays),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "carteira-recebiveis")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	snapshotCache := cache.New[domain.Snapshot](cfg.CacheTTL)
	defer snapshotCache.Close()

	// --- Store ---
	store, closeStore, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// --- Services ---
	portfolio := service.NewPortfolioService(store, snapshotCache, metrics, logger, service.PortfolioOptions{
		Location:       cfg.Location(),
		ReminderWindow: cfg.ReminderWindowDays,
	})
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if cfg.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(bootCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin user", zap.Error(err))
		}
	}
	// A failed first load leaves /readyz at 503; POST /v1/portfolio/refresh retries it.
	if err := portfolio.Refresh(bootCtx); err != nil {
		logger.Error("initial portfolio load failed", zap.Error(err))
	}
	bootCancel()

	// --- Router ---
	router := handler.NewRouter(portfolio, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
