package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASSROOM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ClassroomRepository implements classroom.Repository for PostgreSQL.
type ClassroomRepository struct {
	q Querier
}

// NewClassroomRepository creates a ClassroomRepository bound to q, which is
// either the Connection or an open transaction.
func NewClassroomRepository(q Querier) *ClassroomRepository {
	return &ClassroomRepository{q: q}
}

// Create inserts a classroom and sets its ID.
func (r *ClassroomRepository) Create(ctx context.Context, c *classroom.Classroom) error {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO classrooms (name, created_at)
		VALUES ($1, $2)
		RETURNING id
	`, c.Name.String(), c.CreatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	c.ID = shared.ID(id)
	return nil
}

// GetByID returns a classroom by ID.
func (r *ClassroomRepository) GetByID(ctx context.Context, id shared.ID) (*classroom.Classroom, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, created_at FROM classrooms WHERE id = $1
	`, id.Int64())
	return scanClassroom(row)
}

// GetForUpdate returns a classroom and locks its row until the transaction
// ends, so that no student can be assigned to it concurrently.
func (r *ClassroomRepository) GetForUpdate(ctx context.Context, id shared.ID) (*classroom.Classroom, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, created_at FROM classrooms WHERE id = $1 FOR UPDATE
	`, id.Int64())
	return scanClassroom(row)
}

// List returns all classrooms ordered by id.
func (r *ClassroomRepository) List(ctx context.Context) ([]*classroom.Classroom, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, created_at FROM classrooms ORDER BY id
	`)
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
	rows, err := r.q.Query(ctx, `
		SELECT c.id, c.name, c.created_at, COUNT(s.id)
		FROM classrooms c
		LEFT JOIN students s ON s.classroom_id = c.id
		GROUP BY c.id, c.name, c.created_at
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	defer rows.Close()

	var result []classroom.Summary
	for rows.Next() {
		var (
			id    int64
			name  string
			sum   classroom.Summary
			count int64
		)
		if err := rows.Scan(&id, &name, &sum.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		sum.ID = shared.ID(id)
		sum.Name = shared.Name(name)
		sum.StudentCount = int(count)
		result = append(result, sum)
	}
	return result, rows.Err()
}

// Exists checks whether the classroom exists.
func (r *ClassroomRepository) Exists(ctx context.Context, id shared.ID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM classrooms WHERE id = $1)
	`, id.Int64()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check classroom: %w", err)
	}
	return exists, nil
}

// Delete removes a classroom.
func (r *ClassroomRepository) Delete(ctx context.Context, id shared.ID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM classrooms WHERE id = $1`, id.Int64())
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrClassroomHasStudents
		}
		return fmt.Errorf("failed to delete classroom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClassroomNotFound
	}
	return nil
}

func scanClassroom(row pgx.Row) (*classroom.Classroom, error) {
	var (
		c    classroom.Classroom
		id   int64
		name string
	)
	err := row.Scan(&id, &name, &c.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrClassroomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan classroom: %w", err)
	}
	c.ID = shared.ID(id)
	c.Name = shared.Name(name)
	return &c, nil
}
