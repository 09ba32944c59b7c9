package query

import (
	"context"
	"fmt"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery optionally restricts the listing to one classroom.
type ListStudentsQuery struct {
	// ClassroomID, when valid, limits the result to that roster. An unknown
	// classroom yields an empty list.
	ClassroomID shared.ID
}

// ListStudentsHandler handles ListStudentsQuery.
type ListStudentsHandler struct {
	store school.Repositories
	deps  Deps
}

// NewListStudentsHandler creates a new ListStudentsHandler.
func NewListStudentsHandler(store school.Repositories, deps Deps) *ListStudentsHandler {
	return &ListStudentsHandler{store: store, deps: deps}
}

// Handle returns students ordered by id.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) ([]*student.Student, error) {
	if q.ClassroomID.IsValid() {
		return loadRoster(ctx, h.store, h.deps, q.ClassroomID)
	}

	list, err := h.store.Students().List(ctx, student.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return list, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentQuery identifies a student.
type GetStudentQuery struct {
	StudentID shared.ID `json:"student_id" validate:"gt=0"`
}

// GetStudentHandler handles GetStudentQuery.
type GetStudentHandler struct {
	store school.Repositories
}

// NewGetStudentHandler creates a new GetStudentHandler.
func NewGetStudentHandler(store school.Repositories) *GetStudentHandler {
	return &GetStudentHandler{store: store}
}

// Handle returns the student or shared.ErrStudentNotFound.
func (h *GetStudentHandler) Handle(ctx context.Context, q GetStudentQuery) (*student.Student, error) {
	if err := validate("student", "Get", q); err != nil {
		return nil, err
	}
	return h.store.Students().GetByID(ctx, q.StudentID)
}
