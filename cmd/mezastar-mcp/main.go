package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/cloudmeowmog/mezastar/pkg/api"
	"github.com/cloudmeowmog/mezastar/pkg/config"
	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/inventory"
	"github.com/cloudmeowmog/mezastar/pkg/mcptools"
	"github.com/cloudmeowmog/mezastar/pkg/templates"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

func main() {
	configPath := flag.String("config", "mezastar.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP protocol; InitLogger writes to stderr
	utils.InitLogger(cfg.Log.Level, false)

	cards, err := inventory.Open(cfg.Storage.InventoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	library, err := templates.Open(cfg.Storage.TemplateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tools := &mcptools.Tools{
		Cards:    cards,
		Library:  library,
		Detector: detector.New(cfg.Detector),
		Scorer:   cfg.Scorer(),
		Team:     cfg.Scoring.Team,
	}

	log.Info().Int("cards", len(cards.Cards())).Int("templates", library.Len()).Msg("Serving MCP tools on stdio")

	s := server.NewMCPServer("mezastar", api.Version)
	tools.Register(s)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
