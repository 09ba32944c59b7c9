package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements attendance.Repository for PostgreSQL.
type AttendanceRepository struct {
	q Querier
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(q Querier) *AttendanceRepository {
	return &AttendanceRepository{q: q}
}

// CreateBatch inserts all records in one round trip and sets their IDs.
// Callers run it inside a transaction so a failure leaves nothing behind.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, records []*attendance.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO attendance (student_id, date, status)
			VALUES ($1, $2, $3)
			RETURNING id
		`, rec.StudentID.Int64(), rec.Date, rec.Status.String())
	}

	br := r.q.SendBatch(ctx, batch)
	defer br.Close()

	for _, rec := range records {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			switch {
			case IsForeignKeyViolation(err):
				return shared.ErrStudentNotFound
			case IsCheckViolation(err):
				return shared.ErrInvalidStatus
			}
			return fmt.Errorf("failed to insert attendance: %w", err)
		}
		rec.ID = shared.ID(id)
	}

	return br.Close()
}

// Query returns joined rows matching the filter.
func (r *AttendanceRepository) Query(ctx context.Context, filter attendance.Filter) ([]attendance.Row, error) {
	query, args := buildRecordsQuery(filter)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var result []attendance.Row
	for rows.Next() {
		var (
			row                        attendance.Row
			recordID, studentID, class int64
			status                     string
		)
		if err := rows.Scan(&recordID, &studentID, &row.StudentName, &class, &row.Date, &status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		row.RecordID = shared.ID(recordID)
		row.StudentID = shared.ID(studentID)
		row.ClassroomID = shared.ID(class)
		row.Status = attendance.Status(status)
		result = append(result, row)
	}
	return result, rows.Err()
}

// buildRecordsQuery assembles the report query with positional arguments for
// whichever filters are set.
func buildRecordsQuery(filter attendance.Filter) (string, []interface{}) {
	var (
		sb    strings.Builder
		conds []string
		args  []interface{}
	)
	sb.WriteString(`
		SELECT a.id, s.id, s.name, s.classroom_id, a.date, a.status
		FROM attendance a
		JOIN students s ON s.id = a.student_id`)

	if filter.HasDate() {
		args = append(args, *filter.Date)
		conds = append(conds, fmt.Sprintf("a.date = $%d", len(args)))
	}
	if filter.HasClassroom() {
		args = append(args, filter.ClassroomID.Int64())
		conds = append(conds, fmt.Sprintf("s.classroom_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString("\n\t\tORDER BY a.date DESC, a.id ASC")

	return sb.String(), args
}

// ListByStudent returns a student's records, newest date first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID shared.ID) ([]*attendance.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, student_id, date, status
		FROM attendance
		WHERE student_id = $1
		ORDER BY date DESC, id ASC
	`, studentID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var result []*attendance.Record
	for rows.Next() {
		var (
			rec       attendance.Record
			id, sid   int64
			statusStr string
		)
		if err := rows.Scan(&id, &sid, &rec.Date, &statusStr); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		rec.ID = shared.ID(id)
		rec.StudentID = shared.ID(sid)
		rec.Status = attendance.Status(statusStr)
		result = append(result, &rec)
	}
	return result, rows.Err()
}

// CountByStudentAndStatus counts a student's records with one status.
func (r *AttendanceRepository) CountByStudentAndStatus(ctx context.Context, studentID shared.ID, status attendance.Status) (int, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance WHERE student_id = $1 AND status = $2
	`, studentID.Int64(), status.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return int(n), nil
}

// CountForClassroomOnDate counts stored records of a classroom's students on
// a date.
func (r *AttendanceRepository) CountForClassroomOnDate(ctx context.Context, classroomID shared.ID, date time.Time) (int, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.classroom_id = $1 AND a.date = $2
	`, classroomID.Int64(), date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return int(n), nil
}

// DeleteByStudent removes every record of a student.
func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, studentID shared.ID) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM attendance WHERE student_id = $1`, studentID.Int64())
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
