package command

import (
	"context"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand contains the data to enroll one student.
type CreateStudentCommand struct {
	Name        string    `json:"name" validate:"notblank,maxtrim=100"`
	ClassroomID shared.ID `json:"classroom_id" validate:"gt=0"`
}

// CreateStudentHandler handles CreateStudentCommand.
type CreateStudentHandler struct {
	store school.Store
	deps  Deps
}

// NewCreateStudentHandler creates a new CreateStudentHandler.
func NewCreateStudentHandler(store school.Store, deps Deps) *CreateStudentHandler {
	return &CreateStudentHandler{store: store, deps: deps}
}

// Handle creates the student. A classroom id that does not exist is a
// validation error (shared.ErrUnknownClassroom), not a not-found.
func (h *CreateStudentHandler) Handle(ctx context.Context, cmd CreateStudentCommand) (*student.Student, error) {
	if err := validate("student", "Create", cmd); err != nil {
		return nil, err
	}

	s, err := student.New(cmd.Name, cmd.ClassroomID, h.deps.clock().Now())
	if err != nil {
		return nil, err
	}

	err = h.store.WithinTx(ctx, func(tx school.Repositories) error {
		if err := requireClassroom(ctx, tx, cmd.ClassroomID); err != nil {
			return err
		}
		return tx.Students().Create(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	h.deps.publish(shared.NewStudentsEnrolledEvent(s.ClassroomID, []shared.ID{s.ID}))
	return s, nil
}

// requireClassroom fails with shared.ErrUnknownClassroom when id does not
// reference an existing classroom.
func requireClassroom(ctx context.Context, tx school.Repositories, id shared.ID) error {
	ok, err := tx.Classrooms().Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrUnknownClassroom
	}
	return nil
}
