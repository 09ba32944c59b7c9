package classroom

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/internal/domain/shared"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

	c, err := New("  Grade 5A ", now)
	require.NoError(t, err)
	assert.Equal(t, shared.Name("Grade 5A"), c.Name)
	assert.False(t, c.ID.IsValid())
	assert.Equal(t, now, c.CreatedAt)

	_, err = New("   ", now)
	assert.True(t, shared.IsValidation(err))

	_, err = New(strings.Repeat("x", shared.MaxNameLength+1), now)
	assert.True(t, shared.IsValidation(err))
}

func TestSummary_CanDelete(t *testing.T) {
	assert.True(t, Summary{StudentCount: 0}.CanDelete())
	assert.False(t, Summary{StudentCount: 2}.CanDelete())
}
