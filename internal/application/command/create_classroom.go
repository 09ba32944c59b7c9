package command

import (
	"context"
	"fmt"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE CLASSROOM COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateClassroomCommand contains the data to create a classroom.
type CreateClassroomCommand struct {
	Name string `json:"name" validate:"notblank,maxtrim=100"`
}

// CreateClassroomHandler handles CreateClassroomCommand.
type CreateClassroomHandler struct {
	store school.Store
	deps  Deps
}

// NewCreateClassroomHandler creates a new CreateClassroomHandler.
func NewCreateClassroomHandler(store school.Store, deps Deps) *CreateClassroomHandler {
	return &CreateClassroomHandler{store: store, deps: deps}
}

// Handle creates the classroom and returns it with its new id.
func (h *CreateClassroomHandler) Handle(ctx context.Context, cmd CreateClassroomCommand) (*classroom.Classroom, error) {
	if err := validate("classroom", "Create", cmd); err != nil {
		return nil, err
	}

	c, err := classroom.New(cmd.Name, h.deps.clock().Now())
	if err != nil {
		return nil, err
	}

	if err := h.store.Classrooms().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create classroom: %w", err)
	}

	h.deps.publish(shared.NewClassroomCreatedEvent(c.ID, c.Name.String()))
	return c, nil
}
