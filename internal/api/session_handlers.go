package api

import (
	"context"
	"net/http"

	"excelviz/adapters/excel"
	"excelviz/domain/chart"
	"excelviz/domain/core"
	"excelviz/domain/dataset"
	"excelviz/internal/errors"
	"excelviz/internal/workspace"

	"github.com/gin-gonic/gin"
)

type sessionResponse struct {
	SessionID core.SessionID `json:"session_id"`
	FileName  string         `json:"file_name"`
	Columns   []string       `json:"columns"`
	Rows      int            `json:"rows"`
}

func newSessionResponse(session *workspace.Session) sessionResponse {
	table := session.Table()
	return sessionResponse{
		SessionID: session.ID(),
		FileName:  table.Source,
		Columns:   table.Columns,
		Rows:      len(table.Records),
	}
}

// handleUpload stores an uploaded sheet and starts a session over it
func (s *Server) handleUpload(c *gin.Context) {
	if s.deps.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.MaxUploadBytes+(1<<20))
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required", "code": errors.CodeInvalidInput})
		return
	}
	if _, err := excel.FormatFromName(header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": errors.CodeInvalidInput})
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, "upload", err)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	path, err := s.deps.Uploads.Store(ctx, file, header.Filename)
	if err != nil {
		s.fail(c, "upload", errors.StorageError("failed to store upload", err))
		return
	}

	session, err := s.deps.Manager.Open(ctx, path, s.loadUpload(path, header.Filename))
	if err != nil {
		s.fail(c, "upload", err)
		return
	}
	s.setSource(session.ID(), path)
	s.log.Info("Session %s started from %s", session.ID(), header.Filename)
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// loadUpload parses a stored upload, naming the table after the original file
func (s *Server) loadUpload(path, name string) workspace.LoadFunc {
	return func(ctx context.Context) (*dataset.Table, error) {
		format, err := excel.FormatFromName(name)
		if err != nil {
			return nil, core.NewParseError(name, err)
		}
		rc, err := s.deps.Uploads.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return s.deps.Tabulator.Parse(rc, name, format)
	}
}

func (s *Server) handleCloseSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	s.deps.Manager.Close(session.ID())
	s.dropSource(session.ID())
	c.Status(http.StatusNoContent)
}

func (s *Server) handleColumns(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": session.Columns()})
}

type columnsRequest struct {
	Columns []string `json:"columns"`
}

func (s *Server) handleRegisterFilters(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req columnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "code": errors.CodeInvalidInput})
		return
	}
	v, err := session.RegisterFilters(req.Columns)
	if err != nil {
		s.fail(c, "register filters", err)
		return
	}
	if !v.OK {
		invalid(c, v)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": session.FilterSummary()})
}

func (s *Server) handleFilterSummary(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": session.FilterSummary()})
}

func (s *Server) handleFilterValues(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	values, included, err := session.FilterValues(c.Param("column"))
	if err != nil {
		s.fail(c, "filter values", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": c.Param("column"), "values": values, "included": included})
}

type inclusionRequest struct {
	Value    string `json:"value"`
	Included bool   `json:"included"`
}

func (s *Server) handleSetInclusion(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req inclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "code": errors.CodeInvalidInput})
		return
	}
	if err := session.SetInclusion(c.Param("column"), req.Value, req.Included); err != nil {
		s.fail(c, "set inclusion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": session.FilterSummary(), "charts": session.Charts()})
}

func (s *Server) handleGenerate(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req columnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "code": errors.CodeInvalidInput})
		return
	}
	v, err := session.Generate(req.Columns)
	if err != nil {
		s.fail(c, "generate", err)
		return
	}
	if !v.OK {
		invalid(c, v)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": session.Charts()})
}

func (s *Server) handleCharts(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": session.Charts()})
}

func (s *Server) handleChart(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	ch, overviews, err := session.Export(c.Param("slot"))
	if err != nil {
		s.fail(c, "chart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chart": ch, "mode": session.Mode(ch.Slot).String(), "overview": overviews})
}

type kindRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (s *Server) handleSetKind(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req kindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required", "code": errors.CodeInvalidInput})
		return
	}
	kind, err := chart.ParseKind(req.Kind)
	if err != nil {
		s.fail(c, "set kind", err)
		return
	}
	if err := session.SetKind(c.Param("slot"), kind); err != nil {
		s.fail(c, "set kind", err)
		return
	}
	s.respondChart(c, session, c.Param("slot"))
}

type multiRequest struct {
	Enabled bool     `json:"enabled"`
	Columns []string `json:"columns"`
}

// handleMulti toggles multi-column mode; columns, when given, are applied
// right away
func (s *Server) handleMulti(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req multiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "code": errors.CodeInvalidInput})
		return
	}
	slot := c.Param("slot")
	if err := session.ToggleMulti(slot, req.Enabled); err != nil {
		s.fail(c, "toggle multi", err)
		return
	}
	if req.Enabled && req.Columns != nil {
		v, err := session.SetMultiColumns(slot, req.Columns)
		if err != nil {
			s.fail(c, "multi columns", err)
			return
		}
		if !v.OK {
			invalid(c, v)
			return
		}
	}
	s.respondChart(c, session, slot)
}

type colorRequest struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Color  string `json:"color" binding:"required"`
}

func (s *Server) handleBaseColor(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req colorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "color is required", "code": errors.CodeInvalidInput})
		return
	}
	if err := session.SetBaseColor(c.Param("slot"), req.Color); err != nil {
		s.fail(c, "base color", err)
		return
	}
	s.respondChart(c, session, c.Param("slot"))
}

func (s *Server) handleValueColor(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req colorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Column == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column and color are required", "code": errors.CodeInvalidInput})
		return
	}
	if err := session.SetColor(req.Column, req.Value, req.Color); err != nil {
		s.fail(c, "value color", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": session.Charts()})
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (s *Server) handleTheme(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme is required", "code": errors.CodeInvalidInput})
		return
	}
	if err := session.SetTheme(req.Theme); err != nil {
		s.fail(c, "theme", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": session.Theme(), "charts": session.Charts()})
}

func (s *Server) handleRemoveChart(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	if !session.RemoveChart(c.Param("slot")) {
		s.fail(c, "remove chart", core.NewUnknownSlotError(c.Param("slot")))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondChart(c *gin.Context, session *workspace.Session, slot string) {
	ch, ok := session.Chart(slot)
	if !ok {
		s.fail(c, "chart", core.NewUnknownSlotError(slot))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chart": ch, "mode": session.Mode(slot).String()})
}
