package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/classroll/classroll/internal/infrastructure/persistence/sqlite/migrations"
)

// ErrMigrationFailed indicates a migration failure.
var ErrMigrationFailed = errors.New("sqlite: migration failed")

const (
	markerUp   = "-- +migrate Up"
	markerDown = "-- +migrate Down"
)

// Migration represents one schema version.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// LoadMigrations parses NNN_name.sql files from fsys in version order.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var result []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".sql")
		num, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected NNN_name.sql", entry.Name())
		}
		version, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", entry.Name(), err)
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		up, down := splitMigration(string(content))
		result = append(result, Migration{Version: version, Name: name, UpSQL: up, DownSQL: down})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	for i := 1; i < len(result); i++ {
		if result[i].Version == result[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", result[i].Version)
		}
	}
	return result, nil
}

// splitMigration returns the Up and Down sections. A file without markers is
// all Up.
func splitMigration(content string) (up, down string) {
	upIdx := strings.Index(content, markerUp)
	downIdx := strings.Index(content, markerDown)
	switch {
	case upIdx == -1 && downIdx == -1:
		return strings.TrimSpace(content), ""
	case downIdx == -1:
		return strings.TrimSpace(content[upIdx+len(markerUp):]), ""
	case upIdx == -1:
		return strings.TrimSpace(content[:downIdx]), strings.TrimSpace(content[downIdx+len(markerDown):])
	default:
		return strings.TrimSpace(content[upIdx+len(markerUp) : downIdx]), strings.TrimSpace(content[downIdx+len(markerDown):])
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migrator applies embedded migrations, one transaction per version.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(db *sql.DB) (*Migrator, error) {
	migs, err := LoadMigrations(migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: migs, tableName: "schema_migrations"}, nil
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns applied versions with their timestamps.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt int64
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = fromMillis(appliedAt)
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := withTx(ctx, m.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)", m.tableName),
				mig.Version, mig.Name, toMillis(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var last int
	for v := range applied {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return withTx(ctx, m.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.tableName), last)
		return err
	})
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}
