package http

import (
	"fmt"
	"net/http"

	"github.com/classroll/classroll/internal/application/command"
	"github.com/classroll/classroll/internal/application/query"
	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/internal/interface/http/flash"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAGE VIEW MODELS
// ══════════════════════════════════════════════════════════════════════════════

type studentRow struct {
	Student       *student.Student
	ClassroomName string
}

type indexPage struct {
	Classrooms []classroom.Summary
	Students   []studentRow
	Selected   shared.ID
}

type classroomsPage struct {
	Classrooms []classroom.Summary
}

type attendancePage struct {
	Classrooms []classroom.Summary
	Selected   shared.ID
	Date       string
	Roster     *query.AttendanceRoster
}

type recordsPage struct {
	Classrooms []classroom.Summary
	Selected   shared.ID
	Date       string
	Report     *query.RecordsReport
}

type errorPage struct {
	Status  int
	Message string
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// pageIndex lists students, optionally filtered by ?classroom_id.
func (s *Server) pageIndex(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}

	view := pageView{Title: "Students", Active: "students"}
	selected, err := shared.ParseID(r.URL.Query().Get("classroom_id"))
	if err != nil {
		view.Flash = noticePtr(flash.Error("Unknown classroom filter."))
		selected = 0
	}

	students, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{ClassroomID: selected})
	if err != nil {
		s.pageFailure(w, r, err)
		return
	}

	names := make(map[shared.ID]string, len(classrooms))
	for _, c := range classrooms {
		names[c.ID] = c.Name.String()
	}
	rows := make([]studentRow, 0, len(students))
	for _, st := range students {
		rows = append(rows, studentRow{Student: st, ClassroomName: names[st.ClassroomID]})
	}

	view.Data = indexPage{Classrooms: classrooms, Students: rows, Selected: selected}
	s.render(w, r, http.StatusOK, "index.html", view)
}

func (s *Server) pageNewStudent(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "student_form.html", pageView{
		Title:  "Add student",
		Active: "add",
		Data:   classroomsPage{Classrooms: classrooms},
	})
}

func (s *Server) pageCreateStudent(w http.ResponseWriter, r *http.Request) {
	classroomID, err := shared.ParseID(r.FormValue("classroom_id"))
	if err != nil {
		s.redirectWith(w, r, "/students/new", flash.Error("Choose a classroom."))
		return
	}

	_, err = s.deps.CreateStudent.Handle(r.Context(), command.CreateStudentCommand{
		Name:        r.FormValue("name"),
		ClassroomID: classroomID,
	})
	if err != nil {
		s.formFailure(w, r, err, "/students/new")
		return
	}
	s.redirectWith(w, r, "/", flash.Success("Student added successfully."))
}

func (s *Server) pageStudent(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r.PathValue("id"))
	if err != nil || !id.IsValid() {
		s.renderError(w, r, http.StatusNotFound, "Student not found.")
		return
	}

	history, err := s.deps.StudentHistory.Handle(r.Context(), query.StudentHistoryQuery{StudentID: id})
	if err != nil {
		s.pageFailure(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "student.html", pageView{
		Title:  history.Student.Name.String(),
		Active: "students",
		Data:   history,
	})
}

func (s *Server) pageDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r.PathValue("id"))
	if err != nil || !id.IsValid() {
		s.renderError(w, r, http.StatusNotFound, "Student not found.")
		return
	}

	if _, err := s.deps.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{StudentID: id}); err != nil {
		s.pageFailure(w, r, err)
		return
	}
	s.redirectWith(w, r, "/", flash.Success("Student deleted."))
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSROOMS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) pageClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "classrooms.html", pageView{
		Title:  "Classrooms",
		Active: "classrooms",
		Data:   classroomsPage{Classrooms: classrooms},
	})
}

func (s *Server) pageCreateClassroom(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.CreateClassroom.Handle(r.Context(), command.CreateClassroomCommand{Name: r.FormValue("name")})
	if err != nil {
		s.formFailure(w, r, err, "/classrooms")
		return
	}
	s.redirectWith(w, r, "/classrooms", flash.Success(fmt.Sprintf("Classroom %q added.", c.Name.String())))
}

func (s *Server) pageDeleteClassroom(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r.PathValue("id"))
	if err != nil || !id.IsValid() {
		s.renderError(w, r, http.StatusNotFound, "Classroom not found.")
		return
	}

	err = s.deps.DeleteClassroom.Handle(r.Context(), command.DeleteClassroomCommand{ClassroomID: id})
	switch {
	case err == nil:
		s.redirectWith(w, r, "/classrooms", flash.Success("Classroom deleted."))
	case shared.IsConflict(err):
		s.redirectWith(w, r, "/classrooms", flash.Error("Cannot delete: Classroom has assigned students."))
	default:
		s.pageFailure(w, r, err)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPLOAD
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) pageUpload(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "upload.html", pageView{
		Title:  "Upload students",
		Active: "upload",
		Data:   classroomsPage{Classrooms: classrooms},
	})
}

func (s *Server) pageUploadSubmit(w http.ResponseWriter, r *http.Request) {
	names, err := s.parseUpload(r)
	if err != nil {
		s.formFailure(w, r, err, "/students/upload")
		return
	}

	classroomID, err := shared.ParseID(r.FormValue("classroom_id"))
	if err != nil {
		s.redirectWith(w, r, "/students/upload", flash.Error("Choose a classroom."))
		return
	}

	created, err := s.deps.ImportStudents.Handle(r.Context(), command.BulkImportStudentsCommand{
		ClassroomID: classroomID,
		Names:       names,
	})
	if err != nil {
		s.formFailure(w, r, err, "/students/upload")
		return
	}

	logger.FromContext(r.Context()).Info("students uploaded",
		logger.ClassroomID(classroomID.Int64()),
		logger.Count(len(created)),
	)
	s.redirectWith(w, r, "/", flash.Success("Students uploaded successfully."))
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE
// ══════════════════════════════════════════════════════════════════════════════

// pageAttendance shows the classroom picker and, once a classroom is chosen,
// the roster form for ?date (default: today in the school's timezone).
func (s *Server) pageAttendance(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	data := attendancePage{Classrooms: classrooms, Date: q.Get("date")}
	if data.Date == "" {
		data.Date = timeutil.FormatDate(s.deps.Clock.Today())
	}
	view := pageView{Title: "Attendance", Active: "attendance"}

	selected, err := shared.ParseID(q.Get("classroom_id"))
	if err != nil {
		view.Flash = noticePtr(flash.Error("Unknown classroom."))
	}
	data.Selected = selected

	if selected.IsValid() {
		roster, err := s.deps.RosterForAttendance.Handle(r.Context(), query.RosterForAttendanceQuery{
			ClassroomID: selected,
			Date:        data.Date,
		})
		switch {
		case err == nil:
			data.Roster = roster
		case shared.IsValidation(err) || shared.IsNotFound(err):
			view.Flash = noticePtr(flash.Error(shared.Message(err)))
		default:
			s.pageFailure(w, r, err)
			return
		}
	}

	view.Data = data
	s.render(w, r, http.StatusOK, "attendance.html", view)
}

func (s *Server) pageAttendanceSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWith(w, r, "/attendance", flash.Error("The form could not be read."))
		return
	}

	classroomID, err := shared.ParseID(r.PostForm.Get("classroom_id"))
	if err != nil || !classroomID.IsValid() {
		s.redirectWith(w, r, "/attendance", flash.Error("Choose a classroom."))
		return
	}
	back := fmt.Sprintf("/attendance?classroom_id=%d", classroomID.Int64())

	present := make([]shared.ID, 0, len(r.PostForm["present"]))
	for _, raw := range r.PostForm["present"] {
		id, err := shared.ParseID(raw)
		if err != nil {
			s.redirectWith(w, r, back, flash.Error("Invalid student selection."))
			return
		}
		if id.IsValid() {
			present = append(present, id)
		}
	}

	_, err = s.deps.SubmitAttendance.Handle(r.Context(), command.SubmitAttendanceCommand{
		ClassroomID:       classroomID,
		Date:              r.PostForm.Get("date"),
		PresentStudentIDs: present,
	})
	if err != nil {
		s.formFailure(w, r, err, back)
		return
	}
	s.redirectWith(w, r, "/", flash.Success("Attendance submitted."))
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// pageRecords renders the report. Filters come from the query string on GET
// and from the form on POST; both are optional.
func (s *Server) pageRecords(w http.ResponseWriter, r *http.Request) {
	classrooms, ok := s.loadClassrooms(w, r)
	if !ok {
		return
	}

	view := pageView{Title: "Records", Active: "records"}
	data := recordsPage{Classrooms: classrooms, Date: r.FormValue("date")}

	selected, err := shared.ParseID(r.FormValue("classroom_id"))
	if err != nil {
		view.Flash = noticePtr(flash.Error("Unknown classroom filter."))
	}
	data.Selected = selected

	report, err := s.deps.QueryRecords.Handle(r.Context(), query.QueryRecordsQuery{
		Date:        data.Date,
		ClassroomID: selected,
	})
	switch {
	case err == nil:
		data.Report = report
	case shared.IsValidation(err):
		view.Flash = noticePtr(flash.Error(shared.Message(err)))
	default:
		s.pageFailure(w, r, err)
		return
	}

	view.Data = data
	s.render(w, r, http.StatusOK, "records.html", view)
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) loadClassrooms(w http.ResponseWriter, r *http.Request) ([]classroom.Summary, bool) {
	classrooms, err := s.deps.ListClassrooms.Handle(r.Context())
	if err != nil {
		s.pageFailure(w, r, err)
		return nil, false
	}
	return classrooms, true
}

// redirectWith sets a flash notice and redirects with 303 See Other.
func (s *Server) redirectWith(w http.ResponseWriter, r *http.Request, to string, notice flash.Notice) {
	flash.Write(w, r, notice)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// formFailure sends the user back to the form for errors they can fix and
// renders an error page otherwise.
func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, err error, back string) {
	if shared.IsValidation(err) || shared.IsConflict(err) || shared.IsNotFound(err) {
		s.redirectWith(w, r, back, flash.Error(shared.Message(err)))
		return
	}
	s.pageFailure(w, r, err)
}

// pageFailure renders the error page matching err.
func (s *Server) pageFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("page failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		s.renderError(w, r, status, "Something went wrong. Please try again.")
		return
	}
	s.renderError(w, r, status, shared.Message(err))
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", pageView{
		Title: http.StatusText(status),
		Data:  errorPage{Status: status, Message: message},
	})
}

func noticePtr(n flash.Notice) *flash.Notice {
	return &n
}
