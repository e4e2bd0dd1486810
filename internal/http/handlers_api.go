package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tradedash/internal/dashboard"
	"tradedash/internal/filter"
	applog "tradedash/internal/log"
	"tradedash/internal/render"
)

type optionsResponse struct {
	Version  uint64                  `json:"version"`
	Source   string                  `json:"source"`
	Rows     int                     `json:"rows"`
	Options  filter.Options          `json:"options"`
	Sections []dashboard.SectionInfo `json:"sections"`
}

type reloadResponse struct {
	Version uint64 `json:"version"`
	Source  string `json:"source"`
	Rows    int    `json:"rows"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	NewResponse().JSON(optionsResponse{
		Version:  snap.Version,
		Source:   snap.Source,
		Rows:     snap.Table.Len(),
		Options:  snap.Options,
		Sections: s.session.Sections(),
	}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	d := s.session.BuildAt(r.Context(), snap, ParseSelection(r, snap.Options))
	NewResponse().
		Header("X-Dataset-Version", strconv.FormatUint(d.Version, 10)).
		JSON(d).
		Write(w)
}

// handleSection returns one section. A failed section is still a 200: its
// error travels in the body like it does in the full dashboard.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec, version, ok := s.section(w, r)
	if !ok {
		return
	}
	NewResponse().
		Header("X-Dataset-Version", strconv.FormatUint(version, 10)).
		JSON(sec).
		Write(w)
}

func (s *Server) handleChartConfig(w http.ResponseWriter, r *http.Request) {
	sec, version, ok := s.section(w, r)
	if !ok {
		return
	}
	cfg, err := render.Config(sec)
	if err != nil {
		ErrorResponse(sectionErrorStatus(err), err.Error()).Write(w)
		return
	}
	NewResponse().
		Header("X-Dataset-Version", strconv.FormatUint(version, 10)).
		JSON(cfg).
		Write(w)
}

// handleChartPNG serves a rendered chart image: 404 for an unknown section,
// 415 for kinds without an image renderer and 204 for an empty selection.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, ok := dashboard.Lookup(name, s.session.TopN())
	if !ok {
		NotFoundError(fmt.Sprintf("unknown section %q", name)).Write(w)
		return
	}
	if !render.HasImage(info.Kind) {
		ErrorResponse(http.StatusUnsupportedMediaType,
			fmt.Sprintf("section %q is a %s chart and has no image", name, info.Kind)).Write(w)
		return
	}

	// One snapshot for the selection, the computation and the cache key.
	snap := s.session.Snapshot()
	version := snap.Version
	sel := ParseSelection(r, snap.Options)
	if img, ok := s.cachedChart(version, sel, name); ok {
		writePNG(w, img, version)
		return
	}

	sec, err := s.session.SectionAt(r.Context(), snap, sel, name)
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}

	var buf bytes.Buffer
	err = render.PNG(sec, &buf)
	switch {
	case errors.Is(err, render.ErrEmptyChart):
		w.Header().Set("X-Dataset-Version", strconv.FormatUint(version, 10))
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRender).ErrorContext(r.Context(),
			"Chart rendering failed",
			applog.FieldSection, name,
			applog.FieldError, err)
		ErrorResponse(sectionErrorStatus(err), err.Error()).Write(w)
		return
	}

	img := buf.Bytes()
	if s.charts != nil {
		s.charts.Set(chartKey(version, sel, name), img)
	}
	writePNG(w, img, version)
}

func (s *Server) cachedChart(version uint64, sel filter.Selection, name string) ([]byte, bool) {
	if s.charts == nil {
		return nil, false
	}
	return s.charts.Get(chartKey(version, sel, name))
}

func chartKey(version uint64, sel filter.Selection, name string) string {
	return strconv.FormatUint(version, 10) + "|" + sel.Key() + "|" + name
}

func writePNG(w http.ResponseWriter, img []byte, version uint64) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("X-Dataset-Version", strconv.FormatUint(version, 10))
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// section resolves the {name} route variable and computes it for the
// request's selection. It writes the 404 itself.
func (s *Server) section(w http.ResponseWriter, r *http.Request) (dashboard.Section, uint64, bool) {
	name := mux.Vars(r)["name"]
	snap := s.session.Snapshot()
	sec, err := s.session.SectionAt(r.Context(), snap, ParseSelection(r, snap.Options), name)
	if errors.Is(err, dashboard.ErrUnknownSection) {
		NotFoundError(err.Error()).Write(w)
		return dashboard.Section{}, 0, false
	}
	if err != nil {
		InternalServerError(err.Error()).Write(w)
		return dashboard.Section{}, 0, false
	}
	return sec, snap.Version, true
}

// handleReload re-reads the dataset source. On failure the previous
// snapshot stays active and its version is reported with the error.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Reload(r.Context())
	if err != nil {
		prev := s.session.Snapshot()
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Manual reload failed",
			applog.FieldOperation, applog.OpReload,
			applog.FieldError, err)
		NewResponse().
			Status(http.StatusInternalServerError).
			JSON(reloadResponse{Version: prev.Version, Source: prev.Source, Rows: prev.Table.Len(), Error: err.Error()}).
			Write(w)
		return
	}

	NewResponse().
		TriggerDatasetReloaded(snap.Version).
		JSON(reloadResponse{Version: snap.Version, Source: snap.Source, Rows: snap.Table.Len()}).
		Write(w)
}
