package query

import (
	"context"
	"fmt"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StudentHistoryQuery identifies the student.
type StudentHistoryQuery struct {
	StudentID shared.ID `json:"student_id" validate:"gt=0"`
}

// StudentHistory is a student's full attendance record.
type StudentHistory struct {
	Student   *student.Student
	Classroom *classroom.Classroom

	// Records are ordered by date descending then id ascending.
	Records []*attendance.Record

	// Present and Absent come from COUNT queries, not from Records.
	Present int
	Absent  int
}

// Total returns the number of records.
func (h *StudentHistory) Total() int {
	return h.Present + h.Absent
}

// StudentHistoryHandler handles StudentHistoryQuery. The records and both
// counts are read from one snapshot, so Present+Absent always equals
// len(Records) even while attendance is being submitted.
type StudentHistoryHandler struct {
	store school.Store
}

// NewStudentHistoryHandler creates a new StudentHistoryHandler.
func NewStudentHistoryHandler(store school.Store) *StudentHistoryHandler {
	return &StudentHistoryHandler{store: store}
}

// Handle returns the history or shared.ErrStudentNotFound.
func (h *StudentHistoryHandler) Handle(ctx context.Context, q StudentHistoryQuery) (*StudentHistory, error) {
	if err := validate("student", "History", q); err != nil {
		return nil, err
	}

	var hist *StudentHistory
	err := h.store.WithinSnapshot(ctx, func(tx school.Repositories) error {
		var err error
		hist, err = readHistory(ctx, tx, q.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return hist, nil
}

func readHistory(ctx context.Context, tx school.Repositories, id shared.ID) (*StudentHistory, error) {
	s, err := tx.Students().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := tx.Classrooms().GetByID(ctx, s.ClassroomID)
	if err != nil {
		return nil, fmt.Errorf("student history: classroom: %w", err)
	}

	records, err := tx.Attendance().ListByStudent(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("student history: records: %w", err)
	}

	present, err := tx.Attendance().CountByStudentAndStatus(ctx, s.ID, attendance.StatusPresent)
	if err != nil {
		return nil, fmt.Errorf("student history: count present: %w", err)
	}
	absent, err := tx.Attendance().CountByStudentAndStatus(ctx, s.ID, attendance.StatusAbsent)
	if err != nil {
		return nil, fmt.Errorf("student history: count absent: %w", err)
	}

	return &StudentHistory{
		Student:   s,
		Classroom: c,
		Records:   records,
		Present:   present,
		Absent:    absent,
	}, nil
}
