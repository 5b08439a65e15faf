package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/api"
	"github.com/cloudmeowmog/mezastar/pkg/config"
	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

func main() {
	configPath := flag.String("config", "mezastar.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.InitLogger("info", true)
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load config")
	}
	utils.InitLogger(cfg.Log.Level, cfg.Log.Pretty)

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	cards, err := inventory.Open(cfg.Storage.InventoryPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open inventory")
	}
	library, err := templates.Open(cfg.Storage.TemplateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open template library")
	}
	if library.Len() == 0 {
		log.Warn().Str("dir", library.Dir()).Msg("No icon templates yet, detection will return empty zones")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.WatchTemplates {
		go func() {
			if err := library.Watch(ctx); err != nil {
				log.Error().Err(err).Msg("Template watcher stopped")
			}
		}()
	}

	r := api.NewServer(cfg, cards, library).Router()

	log.Info().Str("port", cfg.Server.Port).Int("cards", len(cards.Cards())).Int("templates", library.Len()).Msg("Mezastar service starting")
	// Bind to 0.0.0.0 explicitly for cloud platforms
	if err := r.Run("0.0.0.0:" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
