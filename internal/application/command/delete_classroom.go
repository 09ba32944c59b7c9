package command

import (
	"context"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE CLASSROOM COMMAND
// A classroom can only be removed while nobody is assigned to it.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteClassroomCommand identifies the classroom to delete.
type DeleteClassroomCommand struct {
	ClassroomID shared.ID `json:"classroom_id" validate:"gt=0"`
}

// DeleteClassroomHandler handles DeleteClassroomCommand.
type DeleteClassroomHandler struct {
	store school.Store
	deps  Deps
}

// NewDeleteClassroomHandler creates a new DeleteClassroomHandler.
func NewDeleteClassroomHandler(store school.Store, deps Deps) *DeleteClassroomHandler {
	return &DeleteClassroomHandler{store: store, deps: deps}
}

// Handle deletes the classroom. It returns shared.ErrClassroomNotFound for an
// unknown id and shared.ErrClassroomHasStudents while students remain.
func (h *DeleteClassroomHandler) Handle(ctx context.Context, cmd DeleteClassroomCommand) error {
	if err := validate("classroom", "Delete", cmd); err != nil {
		return err
	}

	err := h.store.WithinTx(ctx, func(tx school.Repositories) error {
		if _, err := tx.Classrooms().GetForUpdate(ctx, cmd.ClassroomID); err != nil {
			return err
		}

		n, err := tx.Students().CountByClassroom(ctx, cmd.ClassroomID)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.ErrClassroomHasStudents
		}

		return tx.Classrooms().Delete(ctx, cmd.ClassroomID)
	})
	if err != nil {
		return err
	}

	h.deps.publish(shared.NewClassroomDeletedEvent(cmd.ClassroomID))
	return nil
}
