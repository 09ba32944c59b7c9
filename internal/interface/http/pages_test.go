package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroll/classroll/internal/interface/http/flash"
)

// follow issues a GET to the redirect target of rec carrying its cookies.
func (e *testEnv) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	e.t.Helper()
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return e.get(rec.Header().Get("Location"), rec.Result().Cookies()...)
}

func TestParsePages(t *testing.T) {
	pages, err := parsePages()
	require.NoError(t, err)
	assert.Len(t, pages, len(pageNames))
}

func TestPages_RenderEmpty(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/", "/students/new", "/classrooms", "/students/upload", "/attendance", "/records"} {
		t.Run(path, func(t *testing.T) {
			rec := env.get(path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		})
	}

	assert.Equal(t, http.StatusNotFound, env.get("/nope").Code)
}

func TestPages_ClassroomLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/classrooms", url.Values{"name": {"Grade 5"}})
	assert.Equal(t, "/classrooms", rec.Header().Get("Location"))
	page := env.follow(rec)
	body := readAll(t, page.Body)
	assert.Contains(t, body, "Grade 5")
	assert.Contains(t, body, "added.")
	assert.Contains(t, body, `class="notice success"`)

	rec = env.postForm("/classrooms", url.Values{"name": {""}})
	body = readAll(t, env.follow(rec).Body)
	assert.Contains(t, body, `class="notice error"`)

	c := env.apiClassroom("Grade 6")
	env.apiStudent("Ada", c)

	rec = env.postForm(fmt.Sprintf("/classrooms/%d/delete", c), nil)
	body = readAll(t, env.follow(rec).Body)
	assert.Contains(t, body, "Cannot delete: Classroom has assigned students.")

	empty := env.apiClassroom("Grade 7")
	rec = env.postForm(fmt.Sprintf("/classrooms/%d/delete", empty), nil)
	body = readAll(t, env.follow(rec).Body)
	assert.Contains(t, body, "Classroom deleted.")
	assert.NotContains(t, body, "Grade 7")

	assert.Equal(t, http.StatusNotFound, env.postForm("/classrooms/999/delete", nil).Code)
}

func TestPages_StudentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.apiClassroom("A")
	b := env.apiClassroom("B")

	rec := env.postForm("/students", url.Values{"name": {"Ada"}, "classroom_id": {fmt.Sprint(a)}})
	assert.Equal(t, "/", rec.Header().Get("Location"))
	body := readAll(t, env.follow(rec).Body)
	assert.Contains(t, body, "Student added successfully.")
	assert.Contains(t, body, "Ada")

	env.apiStudent("Cleo", b)
	body = readAll(t, env.get(fmt.Sprintf("/?classroom_id=%d", b)).Body)
	assert.Contains(t, body, "Cleo")
	assert.NotContains(t, body, ">Ada<")

	rec = env.postForm("/students", url.Values{"name": {"Bob"}, "classroom_id": {"999"}})
	assert.Equal(t, "/students/new", rec.Header().Get("Location"))

	var students []StudentDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/students?classroom_id=%d", a)), &students)
	require.Len(t, students, 1)
	ada := students[0].ID

	page := env.get(fmt.Sprintf("/students/%d", ada))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, readAll(t, page.Body), "No attendance recorded.")

	rec = env.postForm(fmt.Sprintf("/students/%d/delete", ada), nil)
	assert.Contains(t, readAll(t, env.follow(rec).Body), "Student deleted.")
	assert.Equal(t, http.StatusNotFound, env.get(fmt.Sprintf("/students/%d", ada)).Code)
}

func TestPages_Upload(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")

	body, contentType := multipartFile(t, "names.csv", "name\nAda\nBob\n", map[string]string{"classroom_id": fmt.Sprint(c)})
	req := httptest.NewRequest(http.MethodPost, "/students/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)
	assert.Contains(t, readAll(t, env.follow(rec).Body), "Students uploaded successfully.")

	var students []StudentDTO
	decodeEnvelope(t, env.get("/api/v1/students"), &students)
	assert.Len(t, students, 2)

	body, contentType = multipartFile(t, "names.csv", "first\nAda\n", map[string]string{"classroom_id": fmt.Sprint(c)})
	req = httptest.NewRequest(http.MethodPost, "/students/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec = env.do(req)
	assert.Equal(t, "/students/upload", rec.Header().Get("Location"))
	assert.Contains(t, readAll(t, env.follow(rec).Body), `class="notice error"`)
}

func TestPages_AttendanceAndRecords(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")
	ada := env.apiStudent("Ada", c)
	env.apiStudent("Bob", c)

	page := env.get(fmt.Sprintf("/attendance?classroom_id=%d", c))
	require.Equal(t, http.StatusOK, page.Code)
	body := readAll(t, page.Body)
	assert.Contains(t, body, `value="2024-09-02"`)
	assert.Contains(t, body, fmt.Sprintf(`name="present" value="%d"`, ada))
	assert.NotContains(t, body, "already has")

	rec := env.postForm("/attendance", url.Values{
		"classroom_id": {fmt.Sprint(c)},
		"date":         {"2024-09-02"},
		"present":      {fmt.Sprint(ada)},
	})
	assert.Contains(t, readAll(t, env.follow(rec).Body), "Attendance submitted.")

	body = readAll(t, env.get(fmt.Sprintf("/attendance?classroom_id=%d&date=2024-09-02", c)).Body)
	assert.Contains(t, body, "already has 2 record(s)")

	rec = env.postForm("/records", url.Values{"date": {"2024-09-02"}, "classroom_id": {fmt.Sprint(c)}})
	require.Equal(t, http.StatusOK, rec.Code)
	body = readAll(t, rec.Body)
	assert.Contains(t, body, `Present: <strong class="present">1</strong>`)
	assert.Contains(t, body, `Absent: <strong class="absent">1</strong>`)

	body = readAll(t, env.get("/records?date=2024-09-03").Body)
	assert.Contains(t, body, "No records match.")

	body = readAll(t, env.get("/records?date=bad").Body)
	assert.Contains(t, body, `class="notice error"`)

	page = env.get(fmt.Sprintf("/students/%d", ada))
	assert.Contains(t, readAll(t, page.Body), `class="present">Present</td>`)
}

func TestPages_AttendanceUnknownClassroom(t *testing.T) {
	env := newTestEnv(t)

	body := readAll(t, env.get("/attendance?classroom_id=77").Body)
	assert.Contains(t, body, `class="notice error"`)

	rec := env.postForm("/attendance", url.Values{"classroom_id": {"77"}})
	assert.Equal(t, "/attendance?classroom_id=77", rec.Header().Get("Location"))
}

func TestPages_FlashIsConsumedOnce(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/classrooms", url.Values{"name": {"Grade 5"}})
	page := env.follow(rec)
	assert.Contains(t, readAll(t, page.Body), "added.")

	var cleared bool
	for _, c := range page.Result().Cookies() {
		if c.Name == flash.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}
