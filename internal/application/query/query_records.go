package query

import (
	"context"
	"fmt"
	"time"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY RECORDS
// Filtered attendance report with present/absent totals and a per-student
// breakdown.
// ══════════════════════════════════════════════════════════════════════════════

// QueryRecordsQuery holds the optional report filters. Both may be combined;
// with neither every record is returned.
type QueryRecordsQuery struct {
	// Date is YYYY-MM-DD or blank.
	Date string

	// ClassroomID, when valid, restricts rows to students of that classroom.
	ClassroomID shared.ID
}

// RecordsReport is the result of QueryRecordsQuery.
type RecordsReport struct {
	// Date is the applied date filter, nil when not filtering by date.
	Date        *time.Time
	ClassroomID shared.ID

	// Rows are ordered by date descending then record id ascending.
	Rows []attendance.Row

	attendance.Summary
}

// QueryRecordsHandler handles QueryRecordsQuery.
type QueryRecordsHandler struct {
	store school.Repositories
}

// NewQueryRecordsHandler creates a new QueryRecordsHandler.
func NewQueryRecordsHandler(store school.Repositories) *QueryRecordsHandler {
	return &QueryRecordsHandler{store: store}
}

// Handle runs the report. A malformed date is a validation error.
func (h *QueryRecordsHandler) Handle(ctx context.Context, q QueryRecordsQuery) (*RecordsReport, error) {
	date, err := parseOptionalDate(q.Date)
	if err != nil {
		return nil, err
	}

	filter := attendance.Filter{Date: date, ClassroomID: q.ClassroomID}
	rows, err := h.store.Attendance().Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	return &RecordsReport{
		Date:        date,
		ClassroomID: q.ClassroomID,
		Rows:        rows,
		Summary:     attendance.Summarize(rows),
	}, nil
}
