package command

import (
	"context"
	"fmt"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// BULK IMPORT STUDENTS COMMAND
// Enrolls a list of names into one classroom. All or nothing.
// ══════════════════════════════════════════════════════════════════════════════

// BulkImportStudentsCommand contains the names to enroll, in order.
// Duplicate names are allowed and produce distinct students.
type BulkImportStudentsCommand struct {
	ClassroomID shared.ID `json:"classroom_id" validate:"gt=0"`
	Names       []string  `json:"names" validate:"min=1"`
}

// BulkImportStudentsHandler handles BulkImportStudentsCommand.
type BulkImportStudentsHandler struct {
	store school.Store
	deps  Deps
}

// NewBulkImportStudentsHandler creates a new BulkImportStudentsHandler.
func NewBulkImportStudentsHandler(store school.Store, deps Deps) *BulkImportStudentsHandler {
	return &BulkImportStudentsHandler{store: store, deps: deps}
}

// Handle creates one student per name and returns them in input order. If
// any name is invalid or the classroom is unknown nothing is created.
func (h *BulkImportStudentsHandler) Handle(ctx context.Context, cmd BulkImportStudentsCommand) ([]*student.Student, error) {
	if err := validate("student", "BulkImport", cmd); err != nil {
		return nil, err
	}

	now := h.deps.clock().Now()
	students := make([]*student.Student, 0, len(cmd.Names))
	for i, name := range cmd.Names {
		s, err := student.New(name, cmd.ClassroomID, now)
		if err != nil {
			return nil, shared.WrapError("student", "BulkImport", shared.ErrValidation,
				fmt.Sprintf("name #%d is empty or longer than %d characters", i+1, shared.MaxNameLength), err)
		}
		students = append(students, s)
	}

	err := h.store.WithinTx(ctx, func(tx school.Repositories) error {
		if err := requireClassroom(ctx, tx, cmd.ClassroomID); err != nil {
			return err
		}
		for _, s := range students {
			if err := tx.Students().Create(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Ids assigned before the rollback are meaningless.
		return nil, err
	}

	ids := make([]shared.ID, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	h.deps.publish(shared.NewStudentsEnrolledEvent(cmd.ClassroomID, ids))

	return students, nil
}
