package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	q Querier
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(q Querier) *StudentRepository {
	return &StudentRepository{q: q}
}

// Create inserts a student and sets its ID. A missing classroom surfaces as
// shared.ErrUnknownClassroom.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO students (name, classroom_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, s.Name.String(), s.ClassroomID.Int64(), s.CreatedAt).Scan(&id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUnknownClassroom
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	s.ID = shared.ID(id)
	return nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id shared.ID) (*student.Student, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, classroom_id, created_at FROM students WHERE id = $1
	`, id.Int64())
	return scanStudent(row)
}

// List returns students ordered by id.
func (r *StudentRepository) List(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`SELECT id, name, classroom_id, created_at FROM students`)
	if filter.ClassroomID.IsValid() {
		args = append(args, filter.ClassroomID.Int64())
		sb.WriteString(` WHERE classroom_id = $1`)
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := r.q.Query(ctx, sb.String(), args...)
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
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM students WHERE classroom_id = $1
	`, classroomID.Int64()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return int(n), nil
}

// Delete removes the student row.
func (r *StudentRepository) Delete(ctx context.Context, id shared.ID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM students WHERE id = $1`, id.Int64())
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s           student.Student
		id, classID int64
		name        string
	)
	err := row.Scan(&id, &name, &classID, &s.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	s.ID = shared.ID(id)
	s.Name = shared.Name(name)
	s.ClassroomID = shared.ID(classID)
	return &s, nil
}
