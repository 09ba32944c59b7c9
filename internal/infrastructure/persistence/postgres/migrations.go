package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrMigrationFailed indicates a migration failure.
var ErrMigrationFailed = errors.New("postgres: migration failed")

// migrationLockKey serialises migrators across processes. Every server
// instance may run auto-migrate at boot.
const migrationLockKey int64 = 0x636c726f6c6c // "clroll"

// Migration represents one schema version.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies GetMigrations in order, one transaction per version.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator with the built-in migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: GetMigrations()}
}

const createMigrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.conn.Exec(ctx, createMigrationTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := m.conn.Query(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// step runs one migration body under the advisory lock. It re-checks the
// version inside the transaction so a concurrent migrator's work is skipped.
func (m *Migrator) step(ctx context.Context, mig Migration, up bool) error {
	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", mig.Version,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == up {
			return nil
		}

		body := mig.UpSQL
		record := "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)"
		args := []interface{}{mig.Version, mig.Name}
		if !up {
			body = mig.DownSQL
			record = "DELETE FROM schema_migrations WHERE version = $1"
			args = args[:1]
		}
		if _, err := tx.Exec(ctx, body); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, record, args...)
		return err
	})
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	applied, err := m.applied(ctx)
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
		if err := m.step(ctx, mig, true); err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration. It is a no-op on an
// empty schema.
func (m *Migrator) Rollback(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if _, ok := applied[mig.Version]; !ok {
			continue
		}
		if mig.DownSQL == "" {
			return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, mig.Version)
		}
		if err := m.step(ctx, mig, false); err != nil {
			return fmt.Errorf("%w: rollback %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		return nil
	}
	return nil
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
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

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_classrooms_students",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_attendance",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CLASSROOMS AND STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS classrooms (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT classrooms_name_not_blank CHECK (length(trim(name)) > 0)
);

-- A classroom with students cannot be deleted: RESTRICT is the last guard
-- behind the application check.
CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    classroom_id BIGINT NOT NULL REFERENCES classrooms(id) ON DELETE RESTRICT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT students_name_not_blank CHECK (length(trim(name)) > 0)
);

CREATE INDEX IF NOT EXISTS idx_students_classroom_id ON students(classroom_id);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS classrooms;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

// No uniqueness on (student_id, date): repeated submissions are kept.
const migration002Up = `
CREATE TABLE IF NOT EXISTS attendance (
    id BIGSERIAL PRIMARY KEY,
    student_id BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    date DATE NOT NULL DEFAULT CURRENT_DATE,
    status VARCHAR(10) NOT NULL,

    CONSTRAINT attendance_valid_status CHECK (status IN ('Present', 'Absent'))
);

CREATE INDEX IF NOT EXISTS idx_attendance_student_id ON attendance(student_id);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS attendance;
`
