// Package gormstore implements the store port on a SQL database through gorm.
// Postgres is the production target; SQLite serves local runs and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"
	"github.com/boddenberg/carteira-recebiveis-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tracer = otel.Tracer("gormstore")

// Drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is a port.Store backed by gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ port.Store = (*Store)(nil)

// Open connects to the database and migrates the schema.
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("gormstore: DATABASE_DSN is empty")
		}
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = "file:carteira.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: unknown driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, log)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(rows.All()...); err != nil {
		return nil, fmt.Errorf("gormstore: automigrate: %w", err)
	}
	log.Info("gormstore ready", zap.String("dialect", db.Dialector.Name()))
	return &Store{db: db, logger: log}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm sentinels to domain errors.
func translate(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &domain.ErrNotFound{Resource: resource, ID: id}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &domain.ErrConflict{Message: fmt.Sprintf("%s %s already exists", resource, id)}
	}
	return err
}

func notFound(resource string, id int64) error {
	return &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
}
