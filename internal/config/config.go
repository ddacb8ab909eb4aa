package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"sotdbot/internal/feed"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

// defaultMinRequestID is the adoption cutoff: requests older than this
// predate the rotation and are never eligible.
const defaultMinRequestID = 1417932789315014746

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`

	SongRequestChannelID string `env:"SONG_REQUEST_CHANNEL_ID,required,notEmpty"`
	SotdChannelID        string `env:"SOTD_CHANNEL_ID,required,notEmpty"`
	MinRequestID         uint64 `env:"MIN_REQUEST_ID"`

	AllLinks     bool `env:"ALL_LINKS"`
	DryRun       bool `env:"DRY_RUN"`
	SkipRunCheck bool `env:"SKIP_RUN_CHECK"`

	AudioPath string `env:"AUDIO_PATH,required,notEmpty"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MinRequestID == 0 {
		cfg.MinRequestID = defaultMinRequestID
	}
	return &cfg, nil
}

// New is Parse with the startup contract applied: any missing or
// malformed required setting is fatal before the event loop starts.
func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// MinID returns the adoption cutoff as a feed ordering key.
func (c *Config) MinID() feed.MessageID {
	return feed.MessageID(c.MinRequestID)
}
