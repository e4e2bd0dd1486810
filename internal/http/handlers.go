package http

import (
	"bytes"
	"html/template"
	"net/http"

	"tradedash/internal/dashboard"
	"tradedash/internal/filter"
	applog "tradedash/internal/log"
	"tradedash/internal/render"
)

type sectionView struct {
	Name  string
	Title string
	Kind  dashboard.Kind
	Image bool
	Empty bool
	Error string
}

type indexData struct {
	Version   uint64
	Source    string
	Rows      int
	Total     int
	Options   filter.Options
	Selection filter.Selection
	Query     template.URL
	Sections  []sectionView
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a dataset snapshot is active.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.session == nil || s.session.Snapshot() == nil {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	snap := s.session.Snapshot()
	sel := ParseSelection(r, snap.Options)
	d := s.session.BuildAt(r.Context(), snap, sel)

	data := indexData{
		Version:   d.Version,
		Source:    snap.Source,
		Rows:      d.Rows,
		Total:     snap.Table.Len(),
		Options:   snap.Options,
		Selection: sel,
		Query:     template.URL(SelectionQuery(r.URL.Query())),
		Sections:  make([]sectionView, 0, len(d.Sections)),
	}
	for _, sec := range d.Sections {
		data.Sections = append(data.Sections, sectionView{
			Name:  sec.Name,
			Title: sec.Title,
			Kind:  sec.Kind,
			Image: render.HasImage(sec.Kind),
			Empty: sec.Empty,
			Error: sec.Error,
		})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err,
			"template", "index.html")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
