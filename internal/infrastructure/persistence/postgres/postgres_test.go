package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/internal/domain/attendance"
)

func TestBuildRecordsQuery(t *testing.T) {
	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   attendance.Filter
		contains []string
		absent   []string
		args     []interface{}
	}{
		{
			name:   "no filter",
			absent: []string{"WHERE"},
		},
		{
			name:     "date only",
			filter:   attendance.Filter{Date: &day},
			contains: []string{"WHERE a.date = $1"},
			absent:   []string{"classroom_id = $"},
			args:     []interface{}{day},
		},
		{
			name:     "classroom only",
			filter:   attendance.Filter{ClassroomID: 4},
			contains: []string{"WHERE s.classroom_id = $1"},
			args:     []interface{}{int64(4)},
		},
		{
			name:     "both",
			filter:   attendance.Filter{Date: &day, ClassroomID: 4},
			contains: []string{"a.date = $1 AND s.classroom_id = $2"},
			args:     []interface{}{day, int64(4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildRecordsQuery(tt.filter)

			assert.True(t, strings.HasSuffix(query, "ORDER BY a.date DESC, a.id ASC"))
			for _, c := range tt.contains {
				assert.Contains(t, query, c)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, query, a)
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	fk := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsCheckViolation(fk))

	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsCheckViolation(errors.New("other")))

	assert.True(t, IsNoRows(fmt.Errorf("x: %w", pgx.ErrNoRows)))
}

func TestMigrations_Ordered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL, m.Name)
		assert.NotEmpty(t, m.DownSQL, m.Name)
	}
	assert.Contains(t, migs[0].UpSQL, "ON DELETE RESTRICT")
	assert.Contains(t, migs[1].UpSQL, "ON DELETE CASCADE")
	assert.Contains(t, migs[1].UpSQL, "CHECK (status IN ('Present', 'Absent'))")
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "postgres://u:p@localhost:5432/classroll?sslmode=disable"
	cfg.MaxConns = 7

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, "classroll", pc.ConnConfig.Database)

	_, err = Config{URL: "::not a url::"}.PoolConfig()
	assert.Error(t, err)
}
