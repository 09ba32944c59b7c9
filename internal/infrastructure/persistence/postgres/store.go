package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// repositories binds the three repositories to one Querier.
type repositories struct {
	classrooms *ClassroomRepository
	students   *StudentRepository
	attendance *AttendanceRepository
}

func newRepositories(q Querier) repositories {
	return repositories{
		classrooms: NewClassroomRepository(q),
		students:   NewStudentRepository(q),
		attendance: NewAttendanceRepository(q),
	}
}

func (r repositories) Classrooms() classroom.Repository  { return r.classrooms }
func (r repositories) Students() student.Repository      { return r.students }
func (r repositories) Attendance() attendance.Repository { return r.attendance }

// Store implements school.Store on a PostgreSQL pool.
type Store struct {
	repositories
	conn *Connection
}

var _ school.Store = (*Store)(nil)

// NewStore wraps an open connection.
func NewStore(conn *Connection) *Store {
	return &Store{
		repositories: newRepositories(conn),
		conn:         conn,
	}
}

// WithinTx runs fn in a READ COMMITTED transaction. Multi-step operations
// that need a stable view lock the rows they depend on (GetForUpdate).
func (s *Store) WithinTx(ctx context.Context, fn func(tx school.Repositories) error) error {
	return s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

// WithinSnapshot runs fn in a read-only REPEATABLE READ transaction.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(tx school.Repositories) error) error {
	return s.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

// Migrator returns a migrator over the store's connection.
func (s *Store) Migrator() *Migrator {
	return NewMigrator(s.conn)
}
