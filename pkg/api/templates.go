package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/types"
)

// ListTemplates handles GET /api/templates.
func (s *Server) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":     s.library.Len(),
		"templates": s.library.List(),
	})
}

// AddTemplate handles POST /api/templates with multipart fields label and image.
func (s *Server) AddTemplate(c *gin.Context) {
	label, ok := types.Parse(c.PostForm("label"))
	if !ok || label.IsNone() {
		c.JSON(http.StatusBadRequest, gin.H{"error": templates.ErrInvalidLabel.Error()})
		return
	}
	data, err := s.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return
	}

	t, err := s.library.Add(label, data)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, t)
	case errors.Is(err, templates.ErrInvalidLabel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Failed to add template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// RemoveTemplate handles DELETE /api/templates/:id.
func (s *Server) RemoveTemplate(c *gin.Context) {
	err := s.library.Remove(c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, templates.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, templates.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
