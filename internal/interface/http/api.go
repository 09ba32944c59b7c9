package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/classroll/classroll/internal/application/command"
	"github.com/classroll/classroll/internal/application/query"
	"github.com/classroll/classroll/internal/domain/attendance"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/internal/infrastructure/importer"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// API DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ClassroomDTO is the API representation of a classroom.
type ClassroomDTO struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StudentCount *int      `json:"student_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentDTO is the API representation of a student.
type StudentDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ClassroomID int64     `json:"classroom_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordDTO is one attendance row.
type RecordDTO struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	ClassroomID int64  `json:"classroom_id,omitempty"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}

// TallyDTO is the per-student breakdown of a report.
type TallyDTO struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	Present     int    `json:"present"`
	Absent      int    `json:"absent"`
}

// ReportDTO is the body of GET /api/v1/attendance/records.
type ReportDTO struct {
	Date        string      `json:"date,omitempty"`
	ClassroomID int64       `json:"classroom_id,omitempty"`
	Present     int         `json:"present"`
	Absent      int         `json:"absent"`
	Total       int         `json:"total"`
	Students    []TallyDTO  `json:"students"`
	Records     []RecordDTO `json:"records"`
}

// HistoryDTO is the body of GET /api/v1/students/{id}/attendance.
type HistoryDTO struct {
	Student   StudentDTO   `json:"student"`
	Classroom ClassroomDTO `json:"classroom"`
	Present   int          `json:"present"`
	Absent    int          `json:"absent"`
	Total     int          `json:"total"`
	Records   []RecordDTO  `json:"records"`
}

// SubmissionDTO is the body of POST /api/v1/attendance.
type SubmissionDTO struct {
	ClassroomID int64       `json:"classroom_id"`
	Date        string      `json:"date"`
	Present     int         `json:"present"`
	Absent      int         `json:"absent"`
	Records     []RecordDTO `json:"records"`
}

// RosterDTO is the body of GET /api/v1/classrooms/{id}/roster.
type RosterDTO struct {
	Classroom       ClassroomDTO `json:"classroom"`
	Date            string       `json:"date"`
	Students        []StudentDTO `json:"students"`
	AlreadyRecorded int          `json:"already_recorded"`
}

func toClassroomDTO(c *classroom.Classroom) ClassroomDTO {
	return ClassroomDTO{ID: c.ID.Int64(), Name: c.Name.String(), CreatedAt: c.CreatedAt}
}

func toSummaryDTO(s classroom.Summary) ClassroomDTO {
	dto := toClassroomDTO(&s.Classroom)
	count := s.StudentCount
	dto.StudentCount = &count
	return dto
}

func toStudentDTO(st *student.Student) StudentDTO {
	return StudentDTO{
		ID:          st.ID.Int64(),
		Name:        st.Name.String(),
		ClassroomID: st.ClassroomID.Int64(),
		CreatedAt:   st.CreatedAt,
	}
}

func toStudentDTOs(students []*student.Student) []StudentDTO {
	out := make([]StudentDTO, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentDTO(st))
	}
	return out
}

func toRecordDTOs(records []*attendance.Record) []RecordDTO {
	out := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordDTO{
			ID:        rec.ID.Int64(),
			StudentID: rec.StudentID.Int64(),
			Date:      timeutil.FormatDate(rec.Date),
			Status:    rec.Status.String(),
		})
	}
	return out
}

func toRowDTOs(rows []attendance.Row) []RecordDTO {
	out := make([]RecordDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecordDTO{
			ID:          row.RecordID.Int64(),
			StudentID:   row.StudentID.Int64(),
			StudentName: row.StudentName,
			ClassroomID: row.ClassroomID.Int64(),
			Date:        timeutil.FormatDate(row.Date),
			Status:      row.Status.String(),
		})
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSROOM ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) apiListClassrooms(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.deps.ListClassrooms.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	data := make([]ClassroomDTO, 0, len(summaries))
	for _, sum := range summaries {
		data = append(data, toSummaryDTO(sum))
	}
	writeJSONWithMeta(w, r, http.StatusOK, data, &ResponseMeta{TotalCount: len(data)})
}

func (s *Server) apiCreateClassroom(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateClassroomCommand
	if !s.decodeJSON(w, r, &cmd) {
		return
	}

	c, err := s.deps.CreateClassroom.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusCreated, toClassroomDTO(c), nil)
}

func (s *Server) apiDeleteClassroom(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.deps.DeleteClassroom.Handle(r.Context(), command.DeleteClassroomCommand{ClassroomID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, map[string]int64{"deleted": id.Int64()}, nil)
}

func (s *Server) apiRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	roster, err := s.deps.RosterForAttendance.Handle(r.Context(), query.RosterForAttendanceQuery{
		ClassroomID: id,
		Date:        r.URL.Query().Get("date"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, RosterDTO{
		Classroom:       toClassroomDTO(roster.Classroom),
		Date:            timeutil.FormatDate(roster.Date),
		Students:        toStudentDTOs(roster.Students),
		AlreadyRecorded: roster.AlreadyRecorded,
	}, &ResponseMeta{TotalCount: len(roster.Students)})
}

// apiImportStudents accepts either a multipart upload with a "file" field
// (.xlsx or .csv) or a JSON body {"names": [...]}.
func (s *Server) apiImportStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var names []string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := s.parseUpload(r)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		names = parsed
	} else {
		var body struct {
			Names []string `json:"names"`
		}
		if !s.decodeJSON(w, r, &body) {
			return
		}
		names = body.Names
	}

	created, err := s.deps.ImportStudents.Handle(r.Context(), command.BulkImportStudentsCommand{
		ClassroomID: id,
		Names:       names,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusCreated, toStudentDTOs(created), &ResponseMeta{TotalCount: len(created)})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) apiListStudents(w http.ResponseWriter, r *http.Request) {
	classroomID, err := shared.ParseID(r.URL.Query().Get("classroom_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "classroom_id must be a positive integer")
		return
	}

	students, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{ClassroomID: classroomID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, toStudentDTOs(students), &ResponseMeta{TotalCount: len(students)})
}

func (s *Server) apiCreateStudent(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateStudentCommand
	if !s.decodeJSON(w, r, &cmd) {
		return
	}

	st, err := s.deps.CreateStudent.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusCreated, toStudentDTO(st), nil)
}

func (s *Server) apiGetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	st, err := s.deps.GetStudent.Handle(r.Context(), query.GetStudentQuery{StudentID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, toStudentDTO(st), nil)
}

func (s *Server) apiDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	res, err := s.deps.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{StudentID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, map[string]interface{}{
		"deleted":            id.Int64(),
		"attendance_removed": res.AttendanceRemoved,
	}, nil)
}

func (s *Server) apiStudentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	h, err := s.deps.StudentHistory.Handle(r.Context(), query.StudentHistoryQuery{StudentID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, HistoryDTO{
		Student:   toStudentDTO(h.Student),
		Classroom: toClassroomDTO(h.Classroom),
		Present:   h.Present,
		Absent:    h.Absent,
		Total:     h.Total(),
		Records:   toRecordDTOs(h.Records),
	}, &ResponseMeta{TotalCount: len(h.Records)})
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) apiSubmitAttendance(w http.ResponseWriter, r *http.Request) {
	var cmd command.SubmitAttendanceCommand
	if !s.decodeJSON(w, r, &cmd) {
		return
	}

	res, err := s.deps.SubmitAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusCreated, SubmissionDTO{
		ClassroomID: res.ClassroomID.Int64(),
		Date:        timeutil.FormatDate(res.Date),
		Present:     res.Present,
		Absent:      res.Absent,
		Records:     toRecordDTOs(res.Records),
	}, &ResponseMeta{TotalCount: res.Total()})
}

func (s *Server) apiQueryRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	classroomID, err := shared.ParseID(q.Get("classroom_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "classroom_id must be a positive integer")
		return
	}

	report, err := s.deps.QueryRecords.Handle(r.Context(), query.QueryRecordsQuery{
		Date:        q.Get("date"),
		ClassroomID: classroomID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	dto := ReportDTO{
		ClassroomID: report.ClassroomID.Int64(),
		Present:     report.Present,
		Absent:      report.Absent,
		Total:       report.Total(),
		Students:    make([]TallyDTO, 0, len(report.Students)),
		Records:     toRowDTOs(report.Rows),
	}
	if report.Date != nil {
		dto.Date = timeutil.FormatDate(*report.Date)
	}
	for _, t := range report.Students {
		dto.Students = append(dto.Students, TallyDTO{
			StudentID:   t.StudentID.Int64(),
			StudentName: t.StudentName,
			Present:     t.Present,
			Absent:      t.Absent,
		})
	}
	writeJSONWithMeta(w, r, http.StatusOK, dto, &ResponseMeta{TotalCount: len(report.Rows)})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const maxJSONBody = 1 << 20

// decodeJSON decodes the request body into v. On failure it writes a 400 and
// returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body is too large")
		case errors.Is(err, io.EOF):
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "request body is required")
		default:
			writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", err.Error())
		}
		return false
	}
	return true
}

// pathID parses the {id} path segment. On failure it writes a 400 and
// returns false.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (shared.ID, bool) {
	id, err := shared.ParseID(r.PathValue("id"))
	if err != nil || !id.IsValid() {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseUpload reads the "file" field of a multipart request and extracts the
// student names from it.
func (s *Server) parseUpload(r *http.Request) ([]string, error) {
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		return nil, shared.WrapError("import", "Upload", shared.ErrValidation, "upload could not be read", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, shared.Validation("import", "Upload", "no file selected")
	}
	defer file.Close()

	return importer.ParseNames(header.Filename, file)
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError writes the API error envelope for err. Unclassified errors
// are logged and reported without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, status, code, "An unexpected error occurred")
		return
	}
	writeJSONError(w, status, code, shared.Message(err))
}
