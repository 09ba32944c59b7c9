// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/pkg/circuitbreaker"
	"github.com/classroll/classroll/pkg/timeutil"
	"github.com/classroll/classroll/pkg/validation"
)

// Deps are the collaborators shared by query handlers.
type Deps struct {
	// Cache serves the classroom directory and rosters. Optional; every
	// cache error is treated as a miss.
	Cache school.DirectoryCache

	// Clock supplies the school's current date for date defaults.
	Clock *timeutil.Clock

	// Logger receives cache failures. Defaults to slog.Default().
	Logger *slog.Logger
}

func (d Deps) today() time.Time {
	if d.Clock == nil {
		return timeutil.NewClock(nil).Today()
	}
	return d.Clock.Today()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// parseOptionalDate parses a YYYY-MM-DD filter value. Blank yields nil.
func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := timeutil.ParseDate(value)
	if err != nil {
		return nil, shared.ErrInvalidDate
	}
	return &d, nil
}

func validate(domain, op string, q any) error {
	if err := validation.Struct(q); err != nil {
		return shared.WrapError(domain, op, shared.ErrValidation, err.Error(), err)
	}
	return nil
}

// loadRoster returns a classroom's students ordered by id, through the
// cache when one is configured. The fill carries the generation read before
// the store, so it is dropped if the roster was invalidated meanwhile.
func loadRoster(ctx context.Context, store school.Repositories, deps Deps, classroomID shared.ID) ([]*student.Student, error) {
	var gen int64
	if deps.Cache != nil {
		roster, g, err := deps.Cache.GetRoster(ctx, classroomID)
		if err == nil {
			return roster, nil
		}
		gen = g
	}

	roster, err := store.Students().List(ctx, student.ForClassroom(classroomID))
	if err != nil {
		return nil, err
	}

	if deps.Cache != nil {
		if err := deps.Cache.SetRoster(ctx, classroomID, gen, roster); err != nil && !circuitbreaker.IsRejected(err) {
			deps.logger().Warn("cache roster", "classroom_id", classroomID.Int64(), "error", err)
		}
	}
	return roster, nil
}
