package student

import (
	"context"

	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the storage operations for students.
type Repository interface {
	// Create inserts the student and sets its ID.
	Create(ctx context.Context, s *Student) error

	// GetByID returns shared.ErrStudentNotFound if the student does not exist.
	GetByID(ctx context.Context, id shared.ID) (*Student, error)

	// List returns students ordered by id, restricted by the filter.
	List(ctx context.Context, filter ListFilter) ([]*Student, error)

	// CountByClassroom returns the number of students assigned to a classroom.
	CountByClassroom(ctx context.Context, classroomID shared.ID) (int, error)

	// Delete removes the student row only. Attendance must already be gone.
	// Returns shared.ErrStudentNotFound if the student does not exist.
	Delete(ctx context.Context, id shared.ID) error
}

// ListFilter restricts a student listing. The zero value lists everyone.
type ListFilter struct {
	// ClassroomID, when valid, limits the result to one classroom's roster.
	ClassroomID shared.ID
}

// ForClassroom returns a filter for a single classroom.
func ForClassroom(id shared.ID) ListFilter {
	return ListFilter{ClassroomID: id}
}
