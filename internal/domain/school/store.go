// Package school ties the classroom, student and attendance repositories into
// one transactional unit of work, and declares the read cache contract used by
// the application layer.
package school

import (
	"context"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// Repositories gives access to every repository bound to the same connection
// or transaction.
type Repositories interface {
	Classrooms() classroom.Repository
	Students() student.Repository
	Attendance() attendance.Repository
}

// Store is the data store. Its own repositories run outside any transaction;
// WithinTx runs fn against repositories bound to a single transaction that is
// committed when fn returns nil and rolled back otherwise.
type Store interface {
	Repositories

	WithinTx(ctx context.Context, fn func(tx Repositories) error) error

	// WithinSnapshot runs fn against repositories that all see the same
	// committed state. Reads that must agree with each other use it.
	WithinSnapshot(ctx context.Context, fn func(tx Repositories) error) error

	// Ping checks the connection. Used by health checks.
	Ping(ctx context.Context) error

	Close() error
}

// DirectoryCache caches the classroom directory and classroom rosters.
// Implementations must treat every error as a cache miss on read; callers
// fall back to the store.
//
// Every entry has a generation that Invalidate advances. Get returns it
// alongside the entry, also on a miss; Set stores only if the entry is
// still at that generation. A fill that read the store before a write
// committed therefore cannot outlive the write's invalidation.
type DirectoryCache interface {
	GetClassrooms(ctx context.Context) ([]classroom.Summary, int64, error)
	SetClassrooms(ctx context.Context, gen int64, list []classroom.Summary) error

	GetRoster(ctx context.Context, classroomID shared.ID) ([]*student.Student, int64, error)
	SetRoster(ctx context.Context, classroomID shared.ID, gen int64, roster []*student.Student) error

	// Invalidate drops the directory and, when classroomID is valid, that
	// classroom's roster.
	Invalidate(ctx context.Context, classroomID shared.ID) error
}
