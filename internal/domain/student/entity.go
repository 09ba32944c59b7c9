package student

import (
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is an individual tracked for attendance.
type Student struct {
	// ID is assigned by the store on Create.
	ID shared.ID

	// ClassroomID references the owning classroom. Required.
	ClassroomID shared.ID

	// Name is the display name. Duplicates are allowed.
	Name shared.Name

	CreatedAt time.Time
}

// New validates the input and builds an unsaved Student.
func New(name string, classroomID shared.ID, now time.Time) (*Student, error) {
	n, err := shared.NewName(name)
	if err != nil {
		return nil, shared.WrapError("student", "Create", shared.ErrValidation, "student name is required (max 100 characters)", err)
	}
	if !classroomID.IsValid() {
		return nil, shared.ErrUnknownClassroom
	}
	return &Student{
		ClassroomID: classroomID,
		Name:        n,
		CreatedAt:   now.UTC(),
	}, nil
}
