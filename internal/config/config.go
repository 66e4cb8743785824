package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Platform credentials for the interactive login fallback. Only required
	// when the persisted cookie session is missing or rejected, so absence is
	// validated at authentication time, not here.
	TikTokUsername string `env:"TIKTOK_USERNAME"`
	TikTokPassword string `env:"TIKTOK_PASSWORD"`

	CookiesPath string `env:"COOKIES_PATH" default:"./tiktok_cookies.json"`

	// Browser engine settings.
	ChromePath string `env:"CHROME_PATH"`
	Headless   bool   `env:"HEADLESS" default:"true"`

	// Bound on concurrent page sessions scraping the same target. Each viewer
	// still gets an isolated page; this only caps the multiplication.
	MaxSessionsPerTarget int `env:"MAX_SESSIONS_PER_TARGET" default:"3"`

	// Per-IP rate limit for the stream endpoints.
	StreamRatePerSecond float64 `env:"STREAM_RATE_PER_SECOND" default:"1"`
	StreamRateBurst     int     `env:"STREAM_RATE_BURST" default:"5"`

	// How long to keep waiting for the browser launch and login flow at startup.
	InitTimeout time.Duration `env:"INIT_TIMEOUT" default:"120s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.CookiesPath == "" {
		return fmt.Errorf("COOKIES_PATH must not be empty")
	}
	if cfg.MaxSessionsPerTarget < 1 {
		return fmt.Errorf("MAX_SESSIONS_PER_TARGET must be at least 1, got %d", cfg.MaxSessionsPerTarget)
	}
	if cfg.StreamRatePerSecond <= 0 {
		return fmt.Errorf("STREAM_RATE_PER_SECOND must be positive")
	}
	if cfg.StreamRateBurst < 1 {
		return fmt.Errorf("STREAM_RATE_BURST must be at least 1")
	}
	// One credential without the other can never complete a login.
	if (cfg.TikTokUsername == "") != (cfg.TikTokPassword == "") {
		return fmt.Errorf("TIKTOK_USERNAME and TIKTOK_PASSWORD must be set together")
	}
	return nil
}
