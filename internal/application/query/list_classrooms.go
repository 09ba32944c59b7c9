package query

import (
	"context"
	"fmt"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASSROOMS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListClassroomsHandler lists every classroom with its student count.
type ListClassroomsHandler struct {
	store school.Repositories
	deps  Deps
}

// NewListClassroomsHandler creates a new ListClassroomsHandler.
func NewListClassroomsHandler(store school.Repositories, deps Deps) *ListClassroomsHandler {
	return &ListClassroomsHandler{store: store, deps: deps}
}

// Handle returns all classrooms ordered by id.
func (h *ListClassroomsHandler) Handle(ctx context.Context) ([]classroom.Summary, error) {
	var gen int64
	if h.deps.Cache != nil {
		list, g, err := h.deps.Cache.GetClassrooms(ctx)
		if err == nil {
			return list, nil
		}
		gen = g
	}

	list, err := h.store.Classrooms().ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}

	if h.deps.Cache != nil {
		if err := h.deps.Cache.SetClassrooms(ctx, gen, list); err != nil && !circuitbreaker.IsRejected(err) {
			h.deps.logger().Warn("cache classrooms", "error", err)
		}
	}
	return list, nil
}
