package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"path/filepath"

	"excelviz/domain/core"
	"excelviz/internal/errors"
	"excelviz/internal/settings"
	"excelviz/internal/workspace"
	"excelviz/ports"

	"github.com/gin-gonic/gin"
)

type saveRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// handleSaveSettings snapshots the session into the user's project, registering
// the project first when no id is given
func (s *Server) handleSaveSettings(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user_id is required"})
		return
	}

	ctx := c.Request.Context()
	key := core.ProjectKey{UserID: core.UserID(req.UserID), ProjectID: core.ProjectID(req.ProjectID)}
	if key.ProjectID == "" {
		key.ProjectID = core.NewProjectID()
	}

	doc, err := session.Snapshot()
	if err != nil {
		s.saveFailed(c, err)
		return
	}
	if err := s.ensureProject(ctx, key, req.Name, session); err != nil {
		s.saveFailed(c, err)
		return
	}
	if err := s.deps.Projects.Save(ctx, key, doc); err != nil {
		s.saveFailed(c, err)
		return
	}

	s.log.Info("Saved %d chart(s) of session %s to %s", len(doc.Charts), session.ID(), key)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Chart settings saved successfully",
		"project_id": key.ProjectID,
		"saved_at":   doc.SavedAt,
	})
}

// ensureProject registers unknown projects, or re-registers known ones whose
// session now comes from a new upload
func (s *Server) ensureProject(ctx context.Context, key core.ProjectKey, name string, session *workspace.Session) error {
	existing, err := s.deps.Projects.Resolve(ctx, key)
	if err != nil && !stderrors.Is(err, core.ErrProjectNotFound) {
		return err
	}

	upload := s.source(session.ID())
	if existing != nil && (upload == "" || upload == existing.FileName) && name == "" {
		return nil
	}

	p := &ports.Project{Key: key, Name: name, FileName: upload}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
		p.Location = existing.Location
		if p.Name == "" {
			p.Name = existing.Name
		}
		if p.FileName == "" {
			p.FileName = existing.FileName
		}
	}
	if p.Name == "" {
		p.Name = session.Table().Source
	}
	return s.deps.Projects.Register(ctx, p)
}

func (s *Server) saveFailed(c *gin.Context, err error) {
	appErr := errors.Classify(err)
	status := errors.HTTPStatus(appErr.Code)
	message := "Error saving chart settings: " + err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("save settings failed: %v", err)
		message = "Error saving chart settings"
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

type loadRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProjectID string `json:"project_id" binding:"required"`
}

// handleLoadSettings restores a saved project into the current session
func (s *Server) handleLoadSettings(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user_id and project_id are required"})
		return
	}
	key := core.ProjectKey{UserID: core.UserID(req.UserID), ProjectID: core.ProjectID(req.ProjectID)}

	doc, err := s.deps.Projects.Load(c.Request.Context(), key)
	if err != nil {
		s.fail(c, "load settings", err)
		return
	}
	s.restore(c, session, doc)
}

// handleOpenProject starts a session from a project's stored sheet and restores
// its settings. Concurrent opens of one project share the parse.
func (s *Server) handleOpenProject(c *gin.Context) {
	ctx := c.Request.Context()
	key := core.ProjectKey{UserID: core.UserID(c.Param("user")), ProjectID: core.ProjectID(c.Param("project"))}

	project, err := s.deps.Projects.Resolve(ctx, key)
	if err != nil {
		s.fail(c, "open project", err)
		return
	}
	if project.FileName == "" {
		s.fail(c, "open project", core.NewNotFoundError("spreadsheet", key.String()))
		return
	}
	doc, err := s.deps.Projects.Load(ctx, key)
	if err != nil {
		s.fail(c, "open project", err)
		return
	}

	name := doc.FileName
	if name == "" {
		name = filepath.Base(project.FileName)
	}
	session, err := s.deps.Manager.Open(ctx, project.FileName, s.loadUpload(project.FileName, name))
	if err != nil {
		s.fail(c, "open project", err)
		return
	}
	s.setSource(session.ID(), project.FileName)
	s.restore(c, session, doc)
}

func (s *Server) restore(c *gin.Context, session *workspace.Session, doc *settings.Settings) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.deps.SettleTimeout)
	defer cancel()

	report, err := session.Restore(ctx, doc)
	if report == nil {
		s.fail(c, "restore", err)
		return
	}
	body := gin.H{
		"success":    err == nil,
		"session_id": session.ID(),
		"report":     report,
		"charts":     session.Charts(),
		"summary":    session.FilterSummary(),
	}
	if err != nil {
		s.log.Warn("Restore into session %s incomplete: %v", session.ID(), err)
		body["message"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.deps.Projects.ListByUser(c.Request.Context(), core.UserID(c.Param("user")))
	if err != nil {
		s.fail(c, "list projects", err)
		return
	}
	if projects == nil {
		projects = []*ports.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) handleListBackups(c *gin.Context) {
	lister, ok := s.deps.Projects.(ports.BackupLister)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "this project store keeps no backups"})
		return
	}
	key := core.ProjectKey{UserID: core.UserID(c.Param("user")), ProjectID: core.ProjectID(c.Param("project"))}
	backups, err := lister.Backups(c.Request.Context(), key)
	if err != nil {
		s.fail(c, "list backups", err)
		return
	}
	if backups == nil {
		backups = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"backups": backups})
}
