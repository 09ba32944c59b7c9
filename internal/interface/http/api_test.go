package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) apiClassroom(name string) int64 {
	e.t.Helper()
	rec := e.postJSON("/api/v1/classrooms", map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var c ClassroomDTO
	decodeEnvelope(e.t, rec, &c)
	return c.ID
}

func (e *testEnv) apiStudent(name string, classroomID int64) int64 {
	e.t.Helper()
	rec := e.postJSON("/api/v1/students", map[string]interface{}{"name": name, "classroom_id": classroomID})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var s StudentDTO
	decodeEnvelope(e.t, rec, &s)
	return s.ID
}

func TestAPI_Classrooms(t *testing.T) {
	env := newTestEnv(t)
	id := env.apiClassroom("  Grade 5 ")

	rec := env.get("/api/v1/classrooms")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ClassroomDTO
	out := decodeEnvelope(t, rec, &list)
	assert.True(t, out.Success)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Grade 5", list[0].Name)
	require.NotNil(t, list[0].StudentCount)
	assert.Equal(t, 0, *list[0].StudentCount)
	assert.Equal(t, 1, out.Meta.TotalCount)

	rec = env.delete(fmt.Sprintf("/api/v1/classrooms/%d", id))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.get("/api/v1/classrooms")
	decodeEnvelope(t, rec, &list)
	assert.Empty(t, list)
}

func TestAPI_CreateClassroom_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/api/v1/classrooms", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeEnvelope(t, rec, nil)
	assert.False(t, out.Success)
	assert.Equal(t, "validation_error", out.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classrooms", strings.NewReader("{not json"))
	rec = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeEnvelope(t, rec, nil).Error.Code)
}

func TestAPI_DeleteClassroomWithStudents_Conflict(t *testing.T) {
	env := newTestEnv(t)
	id := env.apiClassroom("Grade 5")
	env.apiStudent("Ada", id)

	rec := env.delete(fmt.Sprintf("/api/v1/classrooms/%d", id))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeEnvelope(t, rec, nil).Error.Code)

	var list []ClassroomDTO
	decodeEnvelope(t, env.get("/api/v1/classrooms"), &list)
	require.Len(t, list, 1)
	assert.Equal(t, 1, *list[0].StudentCount)
}

func TestAPI_DeleteMissingClassroom(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.delete("/api/v1/classrooms/99").Code)
	assert.Equal(t, http.StatusBadRequest, env.delete("/api/v1/classrooms/abc").Code)
}

func TestAPI_Students(t *testing.T) {
	env := newTestEnv(t)
	a := env.apiClassroom("A")
	b := env.apiClassroom("B")
	ada := env.apiStudent("Ada", a)
	env.apiStudent("Cleo", b)

	var all []StudentDTO
	decodeEnvelope(t, env.get("/api/v1/students"), &all)
	assert.Len(t, all, 2)

	var inA []StudentDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/students?classroom_id=%d", a)), &inA)
	require.Len(t, inA, 1)
	assert.Equal(t, "Ada", inA[0].Name)

	assert.Equal(t, http.StatusBadRequest, env.get("/api/v1/students?classroom_id=x").Code)

	var one StudentDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/students/%d", ada)), &one)
	assert.Equal(t, a, one.ClassroomID)

	assert.Equal(t, http.StatusNotFound, env.get("/api/v1/students/999").Code)
}

func TestAPI_CreateStudent_UnknownClassroom(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/api/v1/students", map[string]interface{}{"name": "Ada", "classroom_id": 42})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeEnvelope(t, rec, nil).Error.Code)
}

func TestAPI_AttendanceFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")
	s1 := env.apiStudent("Ada", c)
	s2 := env.apiStudent("Bob", c)
	s3 := env.apiStudent("Cleo", c)

	rec := env.postJSON("/api/v1/attendance", map[string]interface{}{
		"classroom_id":        c,
		"date":                "2024-09-02",
		"present_student_ids": []int64{s1, s2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub SubmissionDTO
	decodeEnvelope(t, rec, &sub)
	assert.Equal(t, 2, sub.Present)
	assert.Equal(t, 1, sub.Absent)
	assert.Len(t, sub.Records, 3)

	var report ReportDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/attendance/records?date=2024-09-02&classroom_id=%d", c)), &report)
	assert.Equal(t, "2024-09-02", report.Date)
	assert.Equal(t, 2, report.Present)
	assert.Equal(t, 1, report.Absent)
	assert.Equal(t, 3, report.Total)
	assert.Len(t, report.Records, 3)
	assert.Len(t, report.Students, 3)

	decodeEnvelope(t, env.get("/api/v1/attendance/records?date=2024-09-03"), &report)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Records)

	assert.Equal(t, http.StatusBadRequest, env.get("/api/v1/attendance/records?date=09/02/2024").Code)

	var history HistoryDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/students/%d/attendance", s3)), &history)
	assert.Equal(t, 0, history.Present)
	assert.Equal(t, 1, history.Absent)
	require.Len(t, history.Records, 1)
	assert.Equal(t, "Absent", history.Records[0].Status)

	var roster RosterDTO
	decodeEnvelope(t, env.get(fmt.Sprintf("/api/v1/classrooms/%d/roster?date=2024-09-02", c)), &roster)
	assert.Len(t, roster.Students, 3)
	assert.Equal(t, 3, roster.AlreadyRecorded)

	rec = env.delete(fmt.Sprintf("/api/v1/students/%d", s1))
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]int
	decodeEnvelope(t, rec, &deleted)
	assert.Equal(t, 1, deleted["attendance_removed"])

	decodeEnvelope(t, env.get("/api/v1/attendance/records"), &report)
	assert.Equal(t, 2, report.Total)
}

func TestAPI_SubmitAttendance_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")
	env.apiStudent("Ada", c)

	rec := env.postJSON("/api/v1/attendance", map[string]interface{}{"classroom_id": c})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub SubmissionDTO
	decodeEnvelope(t, rec, &sub)
	assert.Equal(t, "2024-09-02", sub.Date)
	assert.Equal(t, 1, sub.Absent)
}

func TestAPI_ImportStudents_JSON(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")
	path := fmt.Sprintf("/api/v1/classrooms/%d/students/import", c)

	rec := env.postJSON(path, map[string][]string{"names": {"A", "B", "A"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created []StudentDTO
	decodeEnvelope(t, rec, &created)
	require.Len(t, created, 3)
	assert.NotEqual(t, created[0].ID, created[2].ID)

	rec = env.postJSON(path, map[string][]string{"names": {"C", "  "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var all []StudentDTO
	decodeEnvelope(t, env.get("/api/v1/students"), &all)
	assert.Len(t, all, 3)

	assert.Equal(t, http.StatusBadRequest, env.postJSON(path, map[string][]string{"names": {}}).Code)
}

func TestAPI_ImportStudents_Multipart(t *testing.T) {
	env := newTestEnv(t)
	c := env.apiClassroom("Grade 5")

	body, contentType := multipartFile(t, "roster.csv", "Name\nAda\n\nBob\n", nil)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/classrooms/%d/students/import", c), body)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created []StudentDTO
	decodeEnvelope(t, rec, &created)
	require.Len(t, created, 2)
	assert.Equal(t, "Ada", created[0].Name)
	assert.Equal(t, "Bob", created[1].Name)

	body, contentType = multipartFile(t, "roster.txt", "Name\nAda\n", nil)
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/classrooms/%d/students/import", c), body)
	req.Header.Set("Content-Type", contentType)
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func multipartFile(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
