// Package api exposes chart workspaces over HTTP: a gin JSON API for the
// interactive operations and a chi router for image and report exports.
package api

import (
	"net/http"
	"sync"
	"time"

	"excelviz/adapters/excel"
	"excelviz/domain/core"
	"excelviz/internal"
	"excelviz/internal/errors"
	"excelviz/internal/workspace"
	"excelviz/ports"

	"github.com/gin-gonic/gin"
)

// ImageSource is a renderer that can hand out the image of a live instance
type ImageSource interface {
	PNG(key string) ([]byte, error)
}

// Deps are the collaborators of the server
type Deps struct {
	Manager   *workspace.Manager
	Projects  ports.ProjectStore
	Uploads   ports.UploadStorage
	Tabulator *excel.Tabulator
	Logger    *internal.Logger

	// SettleTimeout bounds a settings restore
	SettleTimeout  time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Server is the HTTP front of the workspace manager
type Server struct {
	router *gin.Engine
	deps   Deps
	log    *internal.Logger

	// uploaded file per session, needed to register projects on save
	sourcesMu sync.RWMutex
	sources   map[core.SessionID]string
}

// NewServer wires the routes
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}
	if deps.Tabulator == nil {
		deps.Tabulator = excel.NewTabulator(excel.DefaultTabulatorConfig())
	}
	if deps.SettleTimeout <= 0 {
		deps.SettleTimeout = 5 * time.Second
	}
	s := &Server{
		router:  gin.New(),
		deps:    deps,
		log:     deps.Logger.With("API"),
		sources: make(map[core.SessionID]string),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.deps.Manager.Len()})
	})

	api := s.router.Group("/api")
	{
		api.POST("/sessions", s.handleUpload)
		api.DELETE("/sessions/:id", s.handleCloseSession)
		api.GET("/sessions/:id/columns", s.handleColumns)

		api.POST("/sessions/:id/filters", s.handleRegisterFilters)
		api.GET("/sessions/:id/filters", s.handleFilterSummary)
		api.GET("/sessions/:id/filters/:column", s.handleFilterValues)
		api.PUT("/sessions/:id/filters/:column", s.handleSetInclusion)

		api.POST("/sessions/:id/charts", s.handleGenerate)
		api.GET("/sessions/:id/charts", s.handleCharts)
		api.GET("/sessions/:id/charts/:slot", s.handleChart)
		api.PUT("/sessions/:id/charts/:slot/kind", s.handleSetKind)
		api.PUT("/sessions/:id/charts/:slot/multi", s.handleMulti)
		api.PUT("/sessions/:id/charts/:slot/color", s.handleBaseColor)
		api.DELETE("/sessions/:id/charts/:slot", s.handleRemoveChart)

		api.PUT("/sessions/:id/theme", s.handleTheme)
		api.PUT("/sessions/:id/colors", s.handleValueColor)

		api.POST("/sessions/:id/settings/save", s.handleSaveSettings)
		api.POST("/sessions/:id/settings/load", s.handleLoadSettings)

		api.GET("/projects/:user", s.handleListProjects)
		api.POST("/projects/:user/:project/open", s.handleOpenProject)
		api.GET("/projects/:user/:project/backups", s.handleListBackups)
	}

	s.router.Any("/export/*path", gin.WrapH(http.StripPrefix("/export", s.exportRouter())))
}

// requestLogger logs one line per request at debug level, failures at warn
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			s.log.Warn("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
			return
		}
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}

// session resolves the :id parameter, answering 404 itself when it fails
func (s *Server) session(c *gin.Context) (*workspace.Session, bool) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return nil, false
	}
	session, err := s.deps.Manager.Get(id)
	if err != nil {
		s.fail(c, "session", err)
		return nil, false
	}
	return session, true
}

// fail answers with the status of err's classification
func (s *Server) fail(c *gin.Context, op string, err error) {
	appErr := errors.Classify(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s failed: %v", op, err)
		c.JSON(status, gin.H{"error": "internal error", "code": appErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": appErr.Code})
}

// invalid answers a failed validation; the client prompts the user with reason
func invalid(c *gin.Context, v core.Validation) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "reason": v.Reason})
}

// setSource records the upload behind a session and forgets swept sessions
func (s *Server) setSource(id core.SessionID, path string) {
	s.sourcesMu.Lock()
	defer s.sourcesMu.Unlock()
	for known := range s.sources {
		if _, err := s.deps.Manager.Get(known); err != nil {
			delete(s.sources, known)
		}
	}
	s.sources[id] = path
}

func (s *Server) source(id core.SessionID) string {
	s.sourcesMu.RLock()
	defer s.sourcesMu.RUnlock()
	return s.sources[id]
}

func (s *Server) dropSource(id core.SessionID) {
	s.sourcesMu.Lock()
	defer s.sourcesMu.Unlock()
	delete(s.sources, id)
}
