// Package sqlite implements the embedded SQLite data store on the pure-Go
// modernc.org/sqlite driver. It mirrors the postgres package: the same
// repositories bound to either the database or one transaction.
//
// The store keeps a single connection. SQLite allows one writer at a time,
// and transactions start with BEGIN IMMEDIATE so the write lock is taken up
// front rather than on first write.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/student"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	classrooms *ClassroomRepository
	students   *StudentRepository
	attendance *AttendanceRepository
}

func newRepositories(q dbtx) repositories {
	return repositories{
		classrooms: &ClassroomRepository{q: q},
		students:   &StudentRepository{q: q},
		attendance: &AttendanceRepository{q: q},
	}
}

func (r repositories) Classrooms() classroom.Repository  { return r.classrooms }
func (r repositories) Students() student.Repository      { return r.students }
func (r repositories) Attendance() attendance.Repository { return r.attendance }

// Store persists classrooms, students and attendance in SQLite.
type Store struct {
	repositories
	sqlDB *sql.DB
}

var _ school.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. It does not run
// migrations; see Migrator.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if path != MemoryPath {
		path = filepath.Clean(path)
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: a single writer, and the only way an in-memory
	// database survives between calls.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{repositories: newRepositories(sqlDB), sqlDB: sqlDB}, nil
}

// OpenMigrated opens the database at path and applies all migrations.
func OpenMigrated(ctx context.Context, path string) (*Store, error) {
	s, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	m, err := s.Migrator()
	if err == nil {
		err = m.Migrate(ctx)
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Migrator returns a migrator over the store's database.
func (s *Store) Migrator() (*Migrator, error) {
	return NewMigrator(s.sqlDB)
}

// WithinTx runs fn in an immediate transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx school.Repositories) error) error {
	return withTx(ctx, s.sqlDB, func(tx *sql.Tx) error {
		return fn(newRepositories(tx))
	})
}

// WithinSnapshot runs fn in a transaction. The store's single connection
// keeps writers out until it ends.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(tx school.Repositories) error) error {
	return s.WithinTx(ctx, fn)
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// withTx commits when fn returns nil and rolls back otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const dateLayout = "2006-01-02"

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", s, err)
	}
	return t, nil
}

func constraintCode(err error) (int, bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	code, ok := constraintCode(err)
	return ok && code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}

// IsCheckViolation checks if the error is a CHECK constraint violation.
func IsCheckViolation(err error) bool {
	code, ok := constraintCode(err)
	return ok && code == sqlite3lib.SQLITE_CONSTRAINT_CHECK
}
