package command

import (
	"context"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// Removes a student together with its whole attendance history.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand identifies the student to delete.
type DeleteStudentCommand struct {
	StudentID shared.ID `json:"student_id" validate:"gt=0"`
}

// DeleteStudentResult describes what was removed.
type DeleteStudentResult struct {
	Student           *student.Student
	AttendanceRemoved int
}

// DeleteStudentHandler handles DeleteStudentCommand.
type DeleteStudentHandler struct {
	store school.Store
	deps  Deps
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(store school.Store, deps Deps) *DeleteStudentHandler {
	return &DeleteStudentHandler{store: store, deps: deps}
}

// Handle deletes the student's attendance records, then the student.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	if err := validate("student", "Delete", cmd); err != nil {
		return nil, err
	}

	var res DeleteStudentResult
	err := h.store.WithinTx(ctx, func(tx school.Repositories) error {
		s, err := tx.Students().GetByID(ctx, cmd.StudentID)
		if err != nil {
			return err
		}

		n, err := tx.Attendance().DeleteByStudent(ctx, s.ID)
		if err != nil {
			return err
		}

		if err := tx.Students().Delete(ctx, s.ID); err != nil {
			return err
		}

		res = DeleteStudentResult{Student: s, AttendanceRemoved: n}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.deps.publish(shared.NewStudentDeletedEvent(res.Student.ID, res.Student.ClassroomID, res.AttendanceRemoved))
	return &res, nil
}
