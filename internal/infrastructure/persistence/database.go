// Package persistence opens the configured data store and its schema
// migrator behind driver-neutral interfaces.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/classroll/classroll/config"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/infrastructure/persistence/postgres"
	"github.com/classroll/classroll/internal/infrastructure/persistence/sqlite"
	"github.com/classroll/classroll/pkg/retry"
)

// Database is an open store. Close releases its connections.
type Database interface {
	school.Store
}

// MigrationStatus describes one schema version.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies and reverts schema versions.
type Migrator interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]MigrationStatus, error)
}

// OnRetry is called before each reconnect attempt.
type OnRetry func(attempt int, err error, delay time.Duration)

// Open connects to the store selected by cfg.Driver. Connection failures are
// retried with exponential backoff until ctx ends or the attempts run out.
func Open(ctx context.Context, cfg config.DatabaseConfig, onRetry OnRetry) (Database, Migrator, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, onRetry)
	case config.DriverSQLite:
		return openSQLite(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, onRetry OnRetry) (Database, Migrator, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.URL
	pgCfg.MaxConns = cfg.MaxConns
	pgCfg.MinConns = cfg.MinConns
	pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	// a malformed URL will not get better with retries
	if _, err := pgCfg.PoolConfig(); err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}

	var conn *postgres.Connection
	err := retry.Connect(onRetry).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := postgres.NewStore(conn)
	return store, pgMigrator{m: store.Migrator()}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig) (Database, Migrator, error) {
	store, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	m, err := store.Migrator()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, sqliteMigrator{m: m}, nil
}

type pgMigrator struct{ m *postgres.Migrator }

func (p pgMigrator) Migrate(ctx context.Context) error  { return p.m.Migrate(ctx) }
func (p pgMigrator) Rollback(ctx context.Context) error { return p.m.Rollback(ctx) }

func (p pgMigrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	migs, err := p.m.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(migs))
	for _, m := range migs {
		out = append(out, MigrationStatus{Version: m.Version, Name: m.Name, Applied: m.IsApplied, AppliedAt: m.AppliedAt})
	}
	return out, nil
}

type sqliteMigrator struct{ m *sqlite.Migrator }

func (s sqliteMigrator) Migrate(ctx context.Context) error  { return s.m.Migrate(ctx) }
func (s sqliteMigrator) Rollback(ctx context.Context) error { return s.m.Rollback(ctx) }

func (s sqliteMigrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	migs, err := s.m.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(migs))
	for _, m := range migs {
		out = append(out, MigrationStatus{Version: m.Version, Name: m.Name, Applied: m.IsApplied, AppliedAt: m.AppliedAt})
	}
	return out, nil
}
