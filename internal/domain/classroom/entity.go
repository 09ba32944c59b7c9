// Package classroom contains the Classroom entity and its repository
// contract. A classroom owns its students; it can only be removed while it
// has none.
package classroom

import (
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
)

// Classroom is a named group that students belong to.
type Classroom struct {
	ID        shared.ID
	Name      shared.Name
	CreatedAt time.Time
}

// New validates name and builds an unsaved Classroom.
func New(name string, now time.Time) (*Classroom, error) {
	n, err := shared.NewName(name)
	if err != nil {
		return nil, shared.WrapError("classroom", "Create", shared.ErrValidation, "classroom name is required (max 100 characters)", err)
	}
	return &Classroom{Name: n, CreatedAt: now.UTC()}, nil
}

// Summary is a classroom with the size of its roster, used by the management
// page to show which classrooms can be deleted.
type Summary struct {
	Classroom
	StudentCount int
}

// CanDelete reports whether the classroom has no students.
func (s Summary) CanDelete() bool {
	return s.StudentCount == 0
}
