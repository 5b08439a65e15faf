package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/cloudmeowmog/mezastar/pkg/battle"
	"github.com/cloudmeowmog/mezastar/pkg/detector"
	"github.com/cloudmeowmog/mezastar/pkg/team"
	"github.com/cloudmeowmog/mezastar/pkg/utils"
)

type Config struct {
	Server   ServerConfig     `toml:"server"`
	Storage  StorageConfig    `toml:"storage"`
	Detector detector.Options `toml:"detector"`
	Scoring  ScoringConfig    `toml:"scoring"`
	Log      LogConfig        `toml:"log"`
}

type ServerConfig struct {
	Port string `toml:"port"` // overridden by $PORT
	// RateLimit is detection requests per second per client; 0 disables it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
	// MaxUploadMB caps multipart bodies.
	MaxUploadMB int64 `toml:"max_upload_mb"`
}

type StorageConfig struct {
	InventoryPath  string `toml:"inventory_path"`
	TemplateDir    string `toml:"template_dir"`
	CardImageDir   string `toml:"card_image_dir"`
	WatchTemplates bool   `toml:"watch_templates"`
}

type ScoringConfig struct {
	battle.Constants
	Team    team.Options `toml:"team"`
	UseRisk bool         `toml:"use_risk"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			RateLimit:   2,
			RateBurst:   4,
			MaxUploadMB: 16,
		},
		Storage: StorageConfig{
			InventoryPath:  "data/cards.json",
			TemplateDir:    "data/templates",
			CardImageDir:   "data/card_images",
			WatchTemplates: true,
		},
		Detector: detector.DefaultOptions(),
		Scoring: ScoringConfig{
			Constants: battle.DefaultConstants(),
			Team:      team.DefaultOptions(),
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if n, err := strconv.Atoi(c.Server.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive: %d", c.Server.MaxUploadMB)
	}
	if c.Storage.InventoryPath == "" || c.Storage.TemplateDir == "" || c.Storage.CardImageDir == "" {
		return errors.New("storage paths cannot be empty")
	}
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Constants.Validate(); err != nil {
		return err
	}
	if c.Scoring.Team.Size < 1 {
		return fmt.Errorf("team size must be at least 1: %d", c.Scoring.Team.Size)
	}
	return nil
}

// Scorer builds the battle scorer described by the scoring section.
func (c *Config) Scorer() *battle.Scorer {
	sc := battle.NewScorer(c.Scoring.Constants)
	sc.UseRisk = c.Scoring.UseRisk
	return sc
}
