package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudmeowmog/mezastar/pkg/battle"
	"github.com/cloudmeowmog/mezastar/pkg/config"
	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/team"
	"github.com/cloudmeowmog/mezastar/pkg/templates"
)

const Version = "1.0.0"

// Server holds the stores and engines behind the HTTP handlers.
type Server struct {
	cfg      *config.Config
	cards    *inventory.Store
	library  *templates.Library
	detector *detector.Detector
	scorer   *battle.Scorer
}

func NewServer(cfg *config.Config, cards *inventory.Store, library *templates.Library) *Server {
	return &Server{
		cfg:      cfg,
		cards:    cards,
		library:  library,
		detector: detector.New(cfg.Detector),
		scorer:   cfg.Scorer(),
	}
}

func (s *Server) teamOptions() team.Options {
	return s.cfg.Scoring.Team
}

func (s *Server) maxUpload() int64 {
	return s.cfg.Server.MaxUploadMB << 20
}

// Router wires every endpoint.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.maxUpload()
	r.Use(gin.Recovery(), RequestID(), AccessLog(), CORS())

	// Root Endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "online",
			"service": "Mezastar Team Advisor",
			"version": Version,
		})
	})

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"templates":      s.library.Len(),
			"cards":          len(s.cards.Cards()),
			"inventoryDirty": s.cards.Dirty(),
		})
	})

	limited := RateLimit(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst)

	// API Group
	api := r.Group("/api")
	{
		// Detection
		api.POST("/detect", limited, s.Detect)
		api.POST("/detect/preview", limited, s.DetectPreview)

		// Team
		api.POST("/team", s.RecommendTeam)
		api.POST("/team/scan", limited, s.ScanTeam)

		// Templates
		tpl := api.Group("/templates")
		{
			tpl.GET("", s.ListTemplates)
			tpl.POST("", s.AddTemplate)
			tpl.DELETE("/:id", s.RemoveTemplate)
		}

		// Inventory
		cards := api.Group("/cards")
		{
			cards.GET("", s.ListCards)
			cards.PUT("", s.UpsertCard)
			cards.POST("/save", s.SaveCards)
			cards.GET("/:name", s.GetCard)
			cards.DELETE("/:name", s.DeleteCard)
			cards.GET("/:name/image/:side", s.GetCardImage)
			cards.PUT("/:name/image/:side", s.PutCardImage)
		}
	}
	return r
}
