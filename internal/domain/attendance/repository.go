package attendance

import (
	"context"
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
)

// Repository defines the storage operations for attendance records.
type Repository interface {
	// CreateBatch inserts all records and sets their IDs.
	CreateBatch(ctx context.Context, records []*Record) error

	// Query returns joined rows matching the filter, ordered by date
	// descending then record id ascending.
	Query(ctx context.Context, filter Filter) ([]Row, error)

	// ListByStudent returns a student's records, ordered by date descending
	// then id ascending.
	ListByStudent(ctx context.Context, studentID shared.ID) ([]*Record, error)

	// CountByStudentAndStatus counts a student's records with the given status.
	CountByStudentAndStatus(ctx context.Context, studentID shared.ID, status Status) (int, error)

	// CountForClassroomOnDate counts the records already stored for the
	// classroom's current roster on a date.
	CountForClassroomOnDate(ctx context.Context, classroomID shared.ID, date time.Time) (int, error)

	// DeleteByStudent removes every record of the student and returns how
	// many were removed.
	DeleteByStudent(ctx context.Context, studentID shared.ID) (int, error)
}

// Filter restricts a report query. Nil/zero fields do not filter.
type Filter struct {
	Date        *time.Time
	ClassroomID shared.ID
}

// HasDate reports whether the filter restricts by date.
func (f Filter) HasDate() bool {
	return f.Date != nil
}

// HasClassroom reports whether the filter restricts by classroom.
func (f Filter) HasClassroom() bool {
	return f.ClassroomID.IsValid()
}
