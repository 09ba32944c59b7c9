package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/internal/application/command"
	"github.com/classroll/classroll/internal/application/query"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/infrastructure/persistence/sqlite"
	"github.com/classroll/classroll/internal/interface/http/handlers"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

var testNow = time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	t      *testing.T
	server *Server
	store  *sqlite.Store
}

type envOption func(*Config, *Dependencies)

func withAuth(user, password string) envOption {
	return func(_ *Config, deps *Dependencies) {
		hash, err := handlers.HashPassword(password)
		if err != nil {
			panic(err)
		}
		deps.Auth = handlers.NewBasicAuth(user, hash)
	}
}

func withRateLimit(perMinute int) envOption {
	return func(cfg *Config, _ *Dependencies) {
		cfg.RateLimitPerMinute = perMinute
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store, err := sqlite.OpenMigrated(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := timeutil.FixedClock(testNow, time.UTC)
	cmdDeps := command.Deps{Clock: clock}
	queryDeps := query.Deps{Clock: clock}

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("database", handlers.NewPingCheck(store))

	deps := Dependencies{
		CreateClassroom:     command.NewCreateClassroomHandler(store, cmdDeps),
		DeleteClassroom:     command.NewDeleteClassroomHandler(store, cmdDeps),
		CreateStudent:       command.NewCreateStudentHandler(store, cmdDeps),
		ImportStudents:      command.NewBulkImportStudentsHandler(store, cmdDeps),
		DeleteStudent:       command.NewDeleteStudentHandler(store, cmdDeps),
		SubmitAttendance:    command.NewSubmitAttendanceHandler(store, cmdDeps),
		ListClassrooms:      query.NewListClassroomsHandler(store, queryDeps),
		ListStudents:        query.NewListStudentsHandler(store, queryDeps),
		GetStudent:          query.NewGetStudentHandler(store),
		QueryRecords:        query.NewQueryRecordsHandler(store),
		StudentHistory:      query.NewStudentHistoryHandler(store),
		RosterForAttendance: query.NewRosterForAttendanceHandler(store, queryDeps),
		Clock:               clock,
		Logger:              logger.Nop(),
		HealthChecker:       health,
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.Version = "test"
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	srv, err := NewServer(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{t: t, server: srv, store: store}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

func (e *testEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(e.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) delete(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodDelete, path, nil))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var status handlers.HealthStatus
	decodeEnvelope(t, rec, &status)
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "database")

	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, env.get("/ready").Code)
	assert.Equal(t, http.StatusOK, env.get("/live").Code)
}

func TestReady_FailsWhenDatabaseIsDown(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	assert.Equal(t, http.StatusServiceUnavailable, env.get("/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.get("/health").Code)
	assert.Equal(t, http.StatusOK, env.get("/live").Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/live")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = env.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withRateLimit(2))

	assert.Equal(t, http.StatusOK, env.get("/live").Code)
	assert.Equal(t, http.StatusOK, env.get("/live").Code)

	rec := env.get("/live")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestBasicAuth_GuardsMutations(t *testing.T) {
	env := newTestEnv(t, withAuth("admin", "s3cret"))

	assert.Equal(t, http.StatusOK, env.get("/api/v1/classrooms").Code)

	rec := env.postJSON("/api/v1/classrooms", map[string]string{"name": "Grade 5"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	raw, _ := json.Marshal(map[string]string{"name": "Grade 5"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/classrooms", bytes.NewReader(raw))
	req.SetBasicAuth("admin", "s3cret")
	assert.Equal(t, http.StatusCreated, env.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/classrooms", bytes.NewReader(raw))
	req.SetBasicAuth("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrUnknownClassroom, http.StatusBadRequest, "validation_error"},
		{shared.ErrInvalidDate, http.StatusBadRequest, "validation_error"},
		{shared.ErrStudentNotFound, http.StatusNotFound, "not_found"},
		{shared.ErrClassroomHasStudents, http.StatusConflict, "conflict"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRateLimiter_PrunesOldRequests(t *testing.T) {
	rl := newRateLimiter(1, 50*time.Millisecond)
	defer rl.Stop()

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}
