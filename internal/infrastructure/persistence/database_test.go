package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/config"
	"github.com/classroll/classroll/internal/infrastructure/persistence/sqlite"
)

func TestOpen_SQLiteMigrateAndRollback(t *testing.T) {
	ctx := context.Background()

	db, m, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: sqlite.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping(ctx))

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, s := range status {
		assert.False(t, s.Applied, "version %d", s.Version)
	}

	require.NoError(t, m.Migrate(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	for _, s := range status {
		assert.True(t, s.Applied, "version %d", s.Version)
	}

	classrooms, err := db.Classrooms().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, classrooms)

	require.NoError(t, m.Rollback(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[len(status)-1].Applied)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestOpen_PostgresBadURLFailsWithoutRetry(t *testing.T) {
	retries := 0
	_, _, err := Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverPostgres,
		URL:    "::not a url::",
	}, func(int, error, time.Duration) { retries++ })
	require.Error(t, err)
	assert.Zero(t, retries)
}
