package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/classroll/classroll/internal/interface/http/flash"
	"github.com/classroll/classroll/pkg/logger"
	"github.com/classroll/classroll/pkg/timeutil"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists the page templates. Each is parsed together with
// layout.html into its own set so that every page can define "content".
var pageNames = []string{
	"index.html",
	"student_form.html",
	"classrooms.html",
	"upload.html",
	"attendance.html",
	"records.html",
	"student.html",
	"error.html",
}

var templateFuncs = template.FuncMap{
	"formatDate": timeutil.FormatDate,
	"humanDate":  timeutil.FormatHuman,
	"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// pageView is the value every page template is executed with.
type pageView struct {
	Title  string
	Active string
	Flash  *flash.Notice
	Data   interface{}
}

// render executes a page into a buffer first so that a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, view pageView) {
	if view.Flash == nil {
		if notice, ok := flash.ReadAndClear(w, r); ok {
			view.Flash = &notice
		}
	}

	t, ok := s.pages[page]
	if !ok {
		s.logger.Error("unknown page template", logger.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		logger.FromContext(r.Context()).Error("render page",
			logger.String("page", page),
			logger.Err(err),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
