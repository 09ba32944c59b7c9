package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/internal/infrastructure/persistence/sqlite"
	"github.com/classroll/classroll/pkg/timeutil"
)

var (
	now  = time.Date(2024, 9, 3, 9, 0, 0, 0, time.UTC)
	day1 = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)
)

type seed struct {
	store          *sqlite.Store
	roomA, roomB   shared.ID
	ada, bob, cleo shared.ID
}

// newSeed builds two classrooms: A with Ada and Bob, B with Cleo, and
// attendance on two days.
func newSeed(t *testing.T) *seed {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.OpenMigrated(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := &seed{store: store}
	s.roomA = mustClassroom(t, store, "A")
	s.roomB = mustClassroom(t, store, "B")
	s.ada = mustStudent(t, store, "Ada", s.roomA)
	s.bob = mustStudent(t, store, "Bob", s.roomA)
	s.cleo = mustStudent(t, store, "Cleo", s.roomB)

	mark(t, store, day1, s.ada, attendance.StatusPresent)
	mark(t, store, day1, s.bob, attendance.StatusAbsent)
	mark(t, store, day1, s.cleo, attendance.StatusPresent)
	mark(t, store, day2, s.ada, attendance.StatusAbsent)
	mark(t, store, day2, s.bob, attendance.StatusPresent)
	return s
}

func mustClassroom(t *testing.T, store *sqlite.Store, name string) shared.ID {
	t.Helper()
	c, err := classroom.New(name, now)
	require.NoError(t, err)
	require.NoError(t, store.Classrooms().Create(context.Background(), c))
	return c.ID
}

func mustStudent(t *testing.T, store *sqlite.Store, name string, classroomID shared.ID) shared.ID {
	t.Helper()
	s, err := student.New(name, classroomID, now)
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(context.Background(), s))
	return s.ID
}

func mark(t *testing.T, store *sqlite.Store, date time.Time, id shared.ID, status attendance.Status) {
	t.Helper()
	r, err := attendance.NewRecord(id, date, status, now)
	require.NoError(t, err)
	require.NoError(t, store.Attendance().CreateBatch(context.Background(), []*attendance.Record{r}))
}

// memCache is a DirectoryCache that counts store fallbacks. Generations
// are keyed by classroom id; id 0 is the directory.
type memCache struct {
	classrooms []classroom.Summary
	rosters    map[shared.ID][]*student.Student
	gens       map[shared.ID]int64
	failSet    bool

	// beforeSet runs once, between the handler's store read and its fill.
	beforeSet func()
}

var errMiss = errors.New("miss")

func (m *memCache) GetClassrooms(context.Context) ([]classroom.Summary, int64, error) {
	if m.classrooms == nil {
		return nil, m.gens[0], errMiss
	}
	return m.classrooms, m.gens[0], nil
}

func (m *memCache) SetClassrooms(_ context.Context, gen int64, list []classroom.Summary) error {
	if err := m.fill(); err != nil || m.gens[0] != gen {
		return err
	}
	m.classrooms = list
	return nil
}

func (m *memCache) GetRoster(_ context.Context, id shared.ID) ([]*student.Student, int64, error) {
	r, ok := m.rosters[id]
	if !ok {
		return nil, m.gens[id], errMiss
	}
	return r, m.gens[id], nil
}

func (m *memCache) SetRoster(_ context.Context, id shared.ID, gen int64, roster []*student.Student) error {
	if err := m.fill(); err != nil || m.gens[id] != gen {
		return err
	}
	if m.rosters == nil {
		m.rosters = map[shared.ID][]*student.Student{}
	}
	m.rosters[id] = roster
	return nil
}

func (m *memCache) fill() error {
	if f := m.beforeSet; f != nil {
		m.beforeSet = nil
		f()
	}
	if m.failSet {
		return errors.New("down")
	}
	return nil
}

func (m *memCache) Invalidate(_ context.Context, id shared.ID) error {
	if m.gens == nil {
		m.gens = map[shared.ID]int64{}
	}
	m.gens[0]++
	m.classrooms = nil
	if id.IsValid() {
		m.gens[id]++
		delete(m.rosters, id)
	}
	return nil
}

func TestListClassrooms(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	cache := &memCache{}
	h := NewListClassroomsHandler(s.store, Deps{Cache: cache})

	first, err := h.Handle(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, s.roomA, first[0].ID)
	assert.Equal(t, 2, first[0].StudentCount)
	assert.Equal(t, 1, first[1].StudentCount)
	assert.False(t, first[0].CanDelete())
	assert.NotNil(t, cache.classrooms)

	second, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Without a cache the store is read every time and results are stable.
	plain := NewListClassroomsHandler(s.store, Deps{})
	a, err := plain.Handle(ctx)
	require.NoError(t, err)
	b, err := plain.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// A failing cache write does not fail the read.
	failing := NewListClassroomsHandler(s.store, Deps{Cache: &memCache{failSet: true}})
	_, err = failing.Handle(ctx)
	assert.NoError(t, err)
}

func TestListStudents(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	cache := &memCache{}
	h := NewListStudentsHandler(s.store, Deps{Cache: cache})

	all, err := h.Handle(ctx, ListStudentsQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []shared.ID{s.ada, s.bob, s.cleo}, []shared.ID{all[0].ID, all[1].ID, all[2].ID})

	roomA, err := h.Handle(ctx, ListStudentsQuery{ClassroomID: s.roomA})
	require.NoError(t, err)
	require.Len(t, roomA, 2)
	assert.Len(t, cache.rosters[s.roomA], 2)

	unknown, err := h.Handle(ctx, ListStudentsQuery{ClassroomID: 999})
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestListClassrooms_FillRacingInvalidate(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	cache := &memCache{}
	h := NewListClassroomsHandler(s.store, Deps{Cache: cache})

	// a classroom is created after the handler read the directory but
	// before it fills the cache
	cache.beforeSet = func() {
		mustClassroom(t, s.store, "C")
		require.NoError(t, cache.Invalidate(ctx, 0))
	}
	stale, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
	assert.Nil(t, cache.classrooms)

	fresh, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
	assert.Len(t, cache.classrooms, 3)
}

func TestListStudents_FillRacingInvalidate(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	cache := &memCache{}
	h := NewListStudentsHandler(s.store, Deps{Cache: cache})

	cache.beforeSet = func() {
		mustStudent(t, s.store, "Dan", s.roomB)
		require.NoError(t, cache.Invalidate(ctx, s.roomB))
	}
	stale, err := h.Handle(ctx, ListStudentsQuery{ClassroomID: s.roomB})
	require.NoError(t, err)
	assert.Len(t, stale, 1)
	assert.NotContains(t, cache.rosters, s.roomB)

	fresh, err := h.Handle(ctx, ListStudentsQuery{ClassroomID: s.roomB})
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Len(t, cache.rosters[s.roomB], 2)
}

func TestGetStudent(t *testing.T) {
	s := newSeed(t)
	h := NewGetStudentHandler(s.store)

	got, err := h.Handle(context.Background(), GetStudentQuery{StudentID: s.bob})
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name.String())

	_, err = h.Handle(context.Background(), GetStudentQuery{StudentID: 999})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(context.Background(), GetStudentQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestQueryRecords(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	h := NewQueryRecordsHandler(s.store)

	t.Run("no filters returns everything", func(t *testing.T) {
		rep, err := h.Handle(ctx, QueryRecordsQuery{})
		require.NoError(t, err)
		assert.Len(t, rep.Rows, 5)
		assert.Equal(t, 3, rep.Present)
		assert.Equal(t, 2, rep.Absent)
		assert.Equal(t, len(rep.Rows), rep.Present+rep.Absent)
		assert.Equal(t, day2, rep.Rows[0].Date)
		assert.Equal(t, day1, rep.Rows[len(rep.Rows)-1].Date)
		assert.Nil(t, rep.Date)
	})

	t.Run("both filters", func(t *testing.T) {
		rep, err := h.Handle(ctx, QueryRecordsQuery{Date: "2024-09-02", ClassroomID: s.roomA})
		require.NoError(t, err)
		require.Len(t, rep.Rows, 2)
		for _, r := range rep.Rows {
			assert.Equal(t, day1, r.Date)
			assert.Equal(t, s.roomA, r.ClassroomID)
		}
		assert.Equal(t, 1, rep.Present)
		assert.Equal(t, 1, rep.Absent)
		require.NotNil(t, rep.Date)
		assert.Equal(t, day1, *rep.Date)
	})

	t.Run("date only spans classrooms", func(t *testing.T) {
		rep, err := h.Handle(ctx, QueryRecordsQuery{Date: "2024-09-02"})
		require.NoError(t, err)
		assert.Len(t, rep.Rows, 3)
		assert.Equal(t, rep.Total(), len(rep.Rows))
	})

	t.Run("classroom only spans dates", func(t *testing.T) {
		rep, err := h.Handle(ctx, QueryRecordsQuery{ClassroomID: s.roomA})
		require.NoError(t, err)
		assert.Len(t, rep.Rows, 4)
		require.Len(t, rep.Students, 2)
		assert.Equal(t, "Ada", rep.Students[0].StudentName)
		assert.Equal(t, 1, rep.Students[0].Present)
		assert.Equal(t, 1, rep.Students[0].Absent)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := h.Handle(ctx, QueryRecordsQuery{Date: "2024-13-01"})
		assert.True(t, shared.IsValidation(err))
	})
}

func TestStudentHistory(t *testing.T) {
	s := newSeed(t)
	h := NewStudentHistoryHandler(s.store)

	hist, err := h.Handle(context.Background(), StudentHistoryQuery{StudentID: s.ada})
	require.NoError(t, err)
	assert.Equal(t, "A", hist.Classroom.Name.String())
	require.Len(t, hist.Records, 2)
	assert.Equal(t, day2, hist.Records[0].Date)

	present, absent := attendance.Tally(hist.Records)
	assert.Equal(t, present, hist.Present)
	assert.Equal(t, absent, hist.Absent)
	assert.Equal(t, 2, hist.Total())

	_, err = h.Handle(context.Background(), StudentHistoryQuery{StudentID: 999})
	assert.True(t, shared.IsNotFound(err))
}

func TestStudentHistory_CountsAgreeWithRecordsDuringSubmits(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	h := NewStudentHistoryHandler(s.store)

	stop := make(chan struct{})
	writeErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			status := attendance.StatusPresent
			if i%2 == 1 {
				status = attendance.StatusAbsent
			}
			r, err := attendance.NewRecord(s.cleo, day2, status, now)
			if err == nil {
				err = s.store.Attendance().CreateBatch(ctx, []*attendance.Record{r})
			}
			if err != nil {
				writeErr <- err
				return
			}
		}
	}()

	for i := 0; i < 300; i++ {
		hist, err := h.Handle(ctx, StudentHistoryQuery{StudentID: s.cleo})
		require.NoError(t, err)
		present, absent := attendance.Tally(hist.Records)
		require.Equal(t, len(hist.Records), hist.Total(), "iteration %d", i)
		require.Equal(t, present, hist.Present, "iteration %d", i)
		require.Equal(t, absent, hist.Absent, "iteration %d", i)
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-writeErr:
		require.NoError(t, err)
	default:
	}
}

func TestRosterForAttendance(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	h := NewRosterForAttendanceHandler(s.store, Deps{Clock: timeutil.FixedClock(now, time.UTC)})

	r, err := h.Handle(ctx, RosterForAttendanceQuery{ClassroomID: s.roomA})
	require.NoError(t, err)
	assert.Equal(t, day2, r.Date)
	assert.Len(t, r.Students, 2)
	assert.Equal(t, 2, r.AlreadyRecorded)

	r, err = h.Handle(ctx, RosterForAttendanceQuery{ClassroomID: s.roomB, Date: "2024-09-03"})
	require.NoError(t, err)
	assert.Zero(t, r.AlreadyRecorded)

	_, err = h.Handle(ctx, RosterForAttendanceQuery{ClassroomID: 999})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, RosterForAttendanceQuery{ClassroomID: s.roomA, Date: "nope"})
	assert.True(t, shared.IsValidation(err))
}
