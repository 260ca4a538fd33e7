// Package backend picks the store implementation named in the configuration.
package backend

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/config"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/gormstore"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/resilience"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/supabase"
	"github.com/boddenberg/carteira-recebiveis-go/internal/port"

	"go.uber.org/zap"
)

// Store backends.
const (
	Supabase = "supabase"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Open builds the configured store. The returned close func releases its
// resources and is never nil.
func Open(cfg *config.Config, logger *zap.Logger) (port.Store, func() error, error) {
	switch cfg.StoreBackend {
	case Supabase:
		if cfg.SupabaseURL == "" {
			return nil, nil, fmt.Errorf("backend %s: SUPABASE_URL is empty", Supabase)
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		return client, func() error { return nil }, nil

	case Postgres:
		logger.Info("using postgres as data backend")
		store, err := gormstore.Open(gormstore.DriverPostgres, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case SQLite:
		logger.Info("using sqlite as data backend", zap.String("path", cfg.SQLitePath))
		store, err := gormstore.Open(gormstore.DriverSQLite, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (want %s, %s or %s)", cfg.StoreBackend, Supabase, Postgres, SQLite)
}
