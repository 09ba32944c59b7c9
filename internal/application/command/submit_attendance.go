package command

import (
	"context"
	"time"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ATTENDANCE COMMAND
// Records one day's attendance for a classroom's whole roster: every student
// gets exactly one row, Present if checked and Absent otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAttendanceCommand contains one submission of the attendance form.
type SubmitAttendanceCommand struct {
	ClassroomID shared.ID `json:"classroom_id" validate:"gt=0"`

	// Date is YYYY-MM-DD. Blank means the school's current date.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`

	// PresentStudentIDs are the checked students. Ids not on the roster are
	// ignored.
	PresentStudentIDs []shared.ID `json:"present_student_ids"`
}

// SubmitAttendanceResult summarises the recorded rows.
type SubmitAttendanceResult struct {
	ClassroomID shared.ID
	Date        time.Time
	Present     int
	Absent      int
	Records     []*attendance.Record
}

// Total returns the number of rows recorded.
func (r *SubmitAttendanceResult) Total() int {
	return r.Present + r.Absent
}

// SubmitAttendanceHandler handles SubmitAttendanceCommand.
type SubmitAttendanceHandler struct {
	store school.Store
	deps  Deps
}

// NewSubmitAttendanceHandler creates a new SubmitAttendanceHandler.
func NewSubmitAttendanceHandler(store school.Store, deps Deps) *SubmitAttendanceHandler {
	return &SubmitAttendanceHandler{store: store, deps: deps}
}

// Handle records the roster's attendance. An unknown classroom yields
// shared.ErrClassroomNotFound; an empty roster records nothing and succeeds.
func (h *SubmitAttendanceHandler) Handle(ctx context.Context, cmd SubmitAttendanceCommand) (*SubmitAttendanceResult, error) {
	if err := validate("attendance", "Submit", cmd); err != nil {
		return nil, err
	}

	var date time.Time
	if cmd.Date != "" {
		d, err := timeutil.ParseDate(cmd.Date)
		if err != nil {
			return nil, shared.ErrInvalidDate
		}
		date = d
	}

	present := make(map[shared.ID]struct{}, len(cmd.PresentStudentIDs))
	for _, id := range cmd.PresentStudentIDs {
		present[id] = struct{}{}
	}

	now := h.deps.clock().Now()
	res := &SubmitAttendanceResult{ClassroomID: cmd.ClassroomID}

	err := h.store.WithinTx(ctx, func(tx school.Repositories) error {
		if _, err := tx.Classrooms().GetByID(ctx, cmd.ClassroomID); err != nil {
			return err
		}

		roster, err := tx.Students().List(ctx, student.ForClassroom(cmd.ClassroomID))
		if err != nil {
			return err
		}

		records := make([]*attendance.Record, 0, len(roster))
		for _, s := range roster {
			_, ok := present[s.ID]
			r, err := attendance.NewRecord(s.ID, date, attendance.StatusFor(ok), now)
			if err != nil {
				return err
			}
			records = append(records, r)
		}

		if len(records) > 0 {
			if err := tx.Attendance().CreateBatch(ctx, records); err != nil {
				return err
			}
		}

		res.Records = records
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Date = timeutil.Day(now)
	if !date.IsZero() {
		res.Date = date
	}
	res.Present, res.Absent = attendance.Tally(res.Records)

	h.deps.publish(shared.NewAttendanceSubmittedEvent(cmd.ClassroomID, timeutil.FormatDate(res.Date), res.Present, res.Absent))
	return res, nil
}
