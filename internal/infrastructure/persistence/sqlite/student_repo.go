package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// StudentRepository implements student.Repository for SQLite.
type StudentRepository struct {
	q dbtx
}

// Create inserts a student and sets its ID.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO students (name, classroom_id, created_at) VALUES (?, ?, ?)`,
		s.Name.String(), s.ClassroomID.Int64(), toMillis(s.CreatedAt))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUnknownClassroom
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read student id: %w", err)
	}
	s.ID = shared.ID(id)
	return nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id shared.ID) (*student.Student, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, classroom_id, created_at FROM students WHERE id = ?`, id.Int64())
	return scanStudent(row)
}

// List returns students ordered by id.
func (r *StudentRepository) List(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	query := `SELECT id, name, classroom_id, created_at FROM students`
	var args []any
	if filter.ClassroomID.IsValid() {
		query += ` WHERE classroom_id = ?`
		args = append(args, filter.ClassroomID.Int64())
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var result []*student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// CountByClassroom returns the size of a classroom's roster.
func (r *StudentRepository) CountByClassroom(ctx context.Context, classroomID shared.ID) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE classroom_id = ?`, classroomID.Int64()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return n, nil
}

// Delete removes the student row.
func (r *StudentRepository) Delete(ctx context.Context, id shared.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id.Int64())
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if n == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

func scanStudent(row scanner) (*student.Student, error) {
	var (
		s           student.Student
		id, classID int64
		name        string
		createdAt   int64
	)
	err := row.Scan(&id, &name, &classID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	s.ID = shared.ID(id)
	s.Name = shared.Name(name)
	s.ClassroomID = shared.ID(classID)
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}
