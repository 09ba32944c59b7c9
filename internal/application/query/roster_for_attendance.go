package query

import (
	"context"
	"fmt"
	"time"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER FOR ATTENDANCE QUERY
// Read model behind the attendance form.
// ══════════════════════════════════════════════════════════════════════════════

// RosterForAttendanceQuery selects the classroom and day of the form.
type RosterForAttendanceQuery struct {
	ClassroomID shared.ID `json:"classroom_id" validate:"gt=0"`

	// Date is YYYY-MM-DD. Blank means the school's current date.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceRoster is the form's content.
type AttendanceRoster struct {
	Classroom *classroom.Classroom
	Date      time.Time
	Students  []*student.Student

	// AlreadyRecorded counts rows stored for this classroom and date. A
	// non-zero value means a new submission adds a second set of rows.
	AlreadyRecorded int
}

// RosterForAttendanceHandler handles RosterForAttendanceQuery. The roster
// and AlreadyRecorded come from one snapshot of the store; the roster cache
// is bypassed here because a cached roster cannot join that snapshot.
type RosterForAttendanceHandler struct {
	store school.Store
	deps  Deps
}

// NewRosterForAttendanceHandler creates a new RosterForAttendanceHandler.
func NewRosterForAttendanceHandler(store school.Store, deps Deps) *RosterForAttendanceHandler {
	return &RosterForAttendanceHandler{store: store, deps: deps}
}

// Handle returns the roster or shared.ErrClassroomNotFound.
func (h *RosterForAttendanceHandler) Handle(ctx context.Context, q RosterForAttendanceQuery) (*AttendanceRoster, error) {
	if err := validate("attendance", "Roster", q); err != nil {
		return nil, err
	}

	date := h.deps.today()
	if d, err := parseOptionalDate(q.Date); err != nil {
		return nil, err
	} else if d != nil {
		date = *d
	}

	out := &AttendanceRoster{Date: date}
	err := h.store.WithinSnapshot(ctx, func(tx school.Repositories) error {
		c, err := tx.Classrooms().GetByID(ctx, q.ClassroomID)
		if err != nil {
			return err
		}
		out.Classroom = c

		out.Students, err = tx.Students().List(ctx, student.ForClassroom(c.ID))
		if err != nil {
			return fmt.Errorf("attendance roster: %w", err)
		}

		out.AlreadyRecorded, err = tx.Attendance().CountForClassroomOnDate(ctx, c.ID, date)
		if err != nil {
			return fmt.Errorf("attendance roster: count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
