package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ClassroomRepository implements classroom.Repository for SQLite.
type ClassroomRepository struct {
	q dbtx
}

// Create inserts a classroom and sets its ID.
func (r *ClassroomRepository) Create(ctx context.Context, c *classroom.Classroom) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO classrooms (name, created_at) VALUES (?, ?)`,
		c.Name.String(), toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read classroom id: %w", err)
	}
	c.ID = shared.ID(id)
	return nil
}

// GetByID returns a classroom by ID.
func (r *ClassroomRepository) GetByID(ctx context.Context, id shared.ID) (*classroom.Classroom, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM classrooms WHERE id = ?`, id.Int64())
	return scanClassroom(row)
}

// GetForUpdate is GetByID. Transactions already hold the database write
// lock from BEGIN IMMEDIATE.
func (r *ClassroomRepository) GetForUpdate(ctx context.Context, id shared.ID) (*classroom.Classroom, error) {
	return r.GetByID(ctx, id)
}

// List returns all classrooms ordered by id.
func (r *ClassroomRepository) List(ctx context.Context) ([]*classroom.Classroom, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, created_at FROM classrooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	defer rows.Close()

	var result []*classroom.Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ListWithCounts returns all classrooms with the size of their rosters.
func (r *ClassroomRepository) ListWithCounts(ctx context.Context) ([]classroom.Summary, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at, COUNT(s.id)
		FROM classrooms c
		LEFT JOIN students s ON s.classroom_id = c.id
		GROUP BY c.id
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	defer rows.Close()

	var result []classroom.Summary
	for rows.Next() {
		var (
			sum       classroom.Summary
			id        int64
			name      string
			createdAt int64
			count     int
		)
		if err := rows.Scan(&id, &name, &createdAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		sum.ID = shared.ID(id)
		sum.Name = shared.Name(name)
		sum.CreatedAt = fromMillis(createdAt)
		sum.StudentCount = count
		result = append(result, sum)
	}
	return result, rows.Err()
}

// Exists checks whether the classroom exists.
func (r *ClassroomRepository) Exists(ctx context.Context, id shared.ID) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM classrooms WHERE id = ?)`, id.Int64()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check classroom: %w", err)
	}
	return exists, nil
}

// Delete removes a classroom.
func (r *ClassroomRepository) Delete(ctx context.Context, id shared.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM classrooms WHERE id = ?`, id.Int64())
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrClassroomHasStudents
		}
		return fmt.Errorf("failed to delete classroom: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete classroom: %w", err)
	}
	if n == 0 {
		return shared.ErrClassroomNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClassroom(row scanner) (*classroom.Classroom, error) {
	var (
		c         classroom.Classroom
		id        int64
		name      string
		createdAt int64
	)
	err := row.Scan(&id, &name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrClassroomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan classroom: %w", err)
	}
	c.ID = shared.ID(id)
	c.Name = shared.Name(name)
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}
