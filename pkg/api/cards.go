package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

// ListCards handles GET /api/cards.
func (s *Server) ListCards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cards": s.cards.Cards(),
		"dirty": s.cards.Dirty(),
	})
}

// GetCard handles GET /api/cards/:name.
func (s *Server) GetCard(c *gin.Context) {
	card, err := s.cards.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, card)
}

// persistError reports a failed save. The change stays in memory, so the
// operator can retry through POST /api/cards/save.
func persistError(c *gin.Context, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Inventory not persisted")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": err.Error(),
		"dirty": true,
	})
}

// UpsertCard handles PUT /api/cards.
func (s *Server) UpsertCard(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	card, err := inventory.DecodeCard(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = s.cards.Upsert(card)
	switch {
	case err == nil:
		stored, _ := s.cards.Get(card.Name)
		c.JSON(http.StatusOK, stored)
	case errors.Is(err, inventory.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		persistError(c, err)
	}
}

// SaveCards handles POST /api/cards/save, retrying a failed write.
func (s *Server) SaveCards(c *gin.Context) {
	if err := s.cards.Save(); err != nil {
		persistError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "cards": len(s.cards.Cards())})
}

// DeleteCard handles DELETE /api/cards/:name.
func (s *Server) DeleteCard(c *gin.Context) {
	err := s.cards.Delete(c.Param("name"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, inventory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		persistError(c, err)
	}
}

func imageSide(c *gin.Context) (inventory.ImageSide, bool) {
	switch side := inventory.ImageSide(c.Param("side")); side {
	case inventory.Front, inventory.Back:
		return side, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "side must be front or back"})
	return "", false
}

// GetCardImage handles GET /api/cards/:name/image/:side.
func (s *Server) GetCardImage(c *gin.Context) {
	side, ok := imageSide(c)
	if !ok {
		return
	}
	path := inventory.ImagePath(s.cfg.Storage.CardImageDir, c.Param("name"), side)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no image stored"})
		return
	}
	c.File(path)
}

// PutCardImage handles PUT /api/cards/:name/image/:side with a multipart image.
// The photo is stored as PNG under the card's name.
func (s *Server) PutCardImage(c *gin.Context) {
	side, ok := imageSide(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if _, err := s.cards.Get(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	data, err := s.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return
	}
	img, err := utils.DecodeImage(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buf, err := utils.EncodeImageToBuffer(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode image"})
		return
	}

	path := inventory.ImagePath(s.cfg.Storage.CardImageDir, name, side)
	if err := utils.WriteFileAtomic(path, buf, 0o644); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", path).Msg("Failed to store card image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	utils.ForgetImage(path)
	c.Status(http.StatusNoContent)
}
