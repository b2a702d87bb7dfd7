package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"excelviz/adapters/render"
	"excelviz/domain/core"
	"excelviz/internal/errors"
	"excelviz/internal/export"
	"excelviz/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// exportRouter serves read-only renditions of a session's charts:
//
//	GET /{session}/report.html     every chart as an HTML report
//	GET /{session}/report.md       the same report as markdown
//	GET /{session}/{slot}.png      one chart image (split charts: one per part key)
//	GET /{session}/{slot}/summary  "label: value (p%)" lines
func (s *Server) exportRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/{session}/report.html", s.exportReportHTML)
	r.Get("/{session}/report.md", s.exportReportMarkdown)
	r.Get("/{session}/{file}", s.exportPNG)
	r.Get("/{session}/{slot}/summary", s.exportSummary)
	return r
}

func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) (*workspace.Session, bool) {
	id, err := core.ParseSessionID(chi.URLParam(r, "session"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	session, err := s.deps.Manager.Get(id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) exportPNG(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	key, ok := strings.CutSuffix(file, ".png")
	if !ok || key == "" {
		http.NotFound(w, r)
		return
	}
	session, ok := s.exportSession(w, r)
	if !ok {
		return
	}
	images, ok := session.Renderer().(ImageSource)
	if !ok {
		http.Error(w, "images are not available for this session", http.StatusNotImplemented)
		return
	}
	img, err := images.PNG(key)
	if stderrors.Is(err, render.ErrNothingToDraw) {
		// everything filtered out
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func (s *Server) exportSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := s.exportSession(w, r)
	if !ok {
		return
	}
	_, overviews, err := session.Export(chi.URLParam(r, "slot"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(overviews)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for i, o := range overviews {
		if len(overviews) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s\n", o.Heading)
		}
		fmt.Fprint(w, export.Lines(o.Lines))
	}
}

func (s *Server) exportReportHTML(w http.ResponseWriter, r *http.Request) {
	session, ok := s.exportSession(w, r)
	if !ok {
		return
	}
	md := session.Report()
	title := session.Table().Source
	if title == "" {
		title = "Chart report"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(export.HTML(title, md))
}

func (s *Server) exportReportMarkdown(w http.ResponseWriter, r *http.Request) {
	session, ok := s.exportSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(session.Report()))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := errors.Classify(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("export failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": appErr.Code})
}
