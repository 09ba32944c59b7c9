package classroom

import (
	"context"

	"github.com/classroll/classroll/internal/domain/shared"
)

// Repository defines the storage operations for classrooms.
type Repository interface {
	// Create inserts the classroom and sets its ID.
	Create(ctx context.Context, c *Classroom) error

	// GetByID returns shared.ErrClassroomNotFound if the classroom does not exist.
	GetByID(ctx context.Context, id shared.ID) (*Classroom, error)

	// GetForUpdate is GetByID that also locks the row until the surrounding
	// transaction ends. Stores without row locks fall back to GetByID.
	GetForUpdate(ctx context.Context, id shared.ID) (*Classroom, error)

	// List returns all classrooms ordered by id.
	List(ctx context.Context) ([]*Classroom, error)

	// ListWithCounts returns all classrooms ordered by id with their student counts.
	ListWithCounts(ctx context.Context) ([]Summary, error)

	// Exists checks whether a classroom with the id exists.
	Exists(ctx context.Context, id shared.ID) (bool, error)

	// Delete removes the classroom. A foreign-key violation is reported as
	// shared.ErrClassroomHasStudents.
	Delete(ctx context.Context, id shared.ID) error
}
