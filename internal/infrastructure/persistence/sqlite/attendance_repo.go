package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/shared"
)

// AttendanceRepository implements attendance.Repository for SQLite.
// Dates are stored as YYYY-MM-DD text, which sorts chronologically.
type AttendanceRepository struct {
	q dbtx
}

// CreateBatch inserts the records one statement at a time and sets their
// IDs. Callers run it inside a transaction.
func (r *AttendanceRepository) CreateBatch(ctx context.Context, records []*attendance.Record) error {
	for _, rec := range records {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO attendance (student_id, date, status) VALUES (?, ?, ?)`,
			rec.StudentID.Int64(), formatDate(rec.Date), rec.Status.String())
		if err != nil {
			switch {
			case IsForeignKeyViolation(err):
				return shared.ErrStudentNotFound
			case IsCheckViolation(err):
				return shared.ErrInvalidStatus
			}
			return fmt.Errorf("failed to insert attendance: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read attendance id: %w", err)
		}
		rec.ID = shared.ID(id)
	}
	return nil
}

// Query returns joined rows matching the filter.
func (r *AttendanceRepository) Query(ctx context.Context, filter attendance.Filter) ([]attendance.Row, error) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString(`
		SELECT a.id, s.id, s.name, s.classroom_id, a.date, a.status
		FROM attendance a
		JOIN students s ON s.id = a.student_id`)
	if filter.HasDate() {
		conds = append(conds, "a.date = ?")
		args = append(args, formatDate(*filter.Date))
	}
	if filter.HasClassroom() {
		conds = append(conds, "s.classroom_id = ?")
		args = append(args, filter.ClassroomID.Int64())
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY a.date DESC, a.id ASC")

	rows, err := r.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var result []attendance.Row
	for rows.Next() {
		var (
			row                        attendance.Row
			recordID, studentID, class int64
			date, status               string
		)
		if err := rows.Scan(&recordID, &studentID, &row.StudentName, &class, &date, &status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance row: %w", err)
		}
		if row.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		row.RecordID = shared.ID(recordID)
		row.StudentID = shared.ID(studentID)
		row.ClassroomID = shared.ID(class)
		row.Status = attendance.Status(status)
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListByStudent returns a student's records, newest date first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID shared.ID) ([]*attendance.Record, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, student_id, date, status
		FROM attendance
		WHERE student_id = ?
		ORDER BY date DESC, id ASC`, studentID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var result []*attendance.Record
	for rows.Next() {
		var (
			rec          attendance.Record
			id, sid      int64
			date, status string
		)
		if err := rows.Scan(&id, &sid, &date, &status); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		if rec.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		rec.ID = shared.ID(id)
		rec.StudentID = shared.ID(sid)
		rec.Status = attendance.Status(status)
		result = append(result, &rec)
	}
	return result, rows.Err()
}

// CountByStudentAndStatus counts a student's records with one status.
func (r *AttendanceRepository) CountByStudentAndStatus(ctx context.Context, studentID shared.ID, status attendance.Status) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance WHERE student_id = ? AND status = ?`,
		studentID.Int64(), status.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}

// CountForClassroomOnDate counts stored records of a classroom's students on
// a date.
func (r *AttendanceRepository) CountForClassroomOnDate(ctx context.Context, classroomID shared.ID, date time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.classroom_id = ? AND a.date = ?`,
		classroomID.Int64(), formatDate(date)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}

// DeleteByStudent removes every record of a student.
func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, studentID shared.ID) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = ?`, studentID.Int64())
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}
	return int(n), nil
}
