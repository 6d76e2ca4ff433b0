// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration for the release tracker.
type Config struct {
	// DataDir is where the JSON documents (channels, watch state, deleted
	// videos, pending posts) live.
	DataDir string `json:"data_dir"`

	// TelegramToken is the bot token for moderation and publishing.
	TelegramToken string `json:"telegram_token"`
	// ModeratorChatID is the chat where moderation cards are sent.
	ModeratorChatID int64 `json:"moderator_chat_id"`
	// GroupsByGenre maps genre labels to destination channel ids.
	GroupsByGenre map[string]int64 `json:"groups_by_genre"`
	// DefaultDestination receives posts whose genre has no mapping.
	DefaultDestination int64 `json:"default_destination"`

	// YouTubeAPIKey is the Data API v3 key.
	YouTubeAPIKey string `json:"youtube_api_key"`
	// StartDate is the UTC calendar day to track, formatted 2006-01-02.
	// Empty means today.
	StartDate string `json:"start_date"`
	// CheckIntervalHours is the wall-clock interval between cycles.
	CheckIntervalHours int `json:"check_interval_hours"`

	// GeneratorEndpoint is the base URL of the Ollama-compatible endpoint.
	GeneratorEndpoint string `json:"generator_endpoint"`
	// GeneratorModel is the model name sent with every request.
	GeneratorModel string `json:"generator_model"`
	// GeneratorTimeout bounds a single generation request.
	GeneratorTimeout time.Duration `json:"generator_timeout"`

	// MaxRetries is the maximum number of retries for failed HTTP operations
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:            "data",
		GroupsByGenre:      map[string]int64{},
		CheckIntervalHours: 2,
		GeneratorEndpoint:  "http://localhost:11434",
		GeneratorModel:     "llama3.1",
		GeneratorTimeout:   5 * time.Minute,
		MaxRetries:         5,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         30 * time.Second,
		BackoffMultiplier:  2.0,
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Config file is optional
	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from releasetracker.json in the
// current directory or the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"releasetracker.json",
		filepath.Join(os.Getenv("HOME"), ".config", "releasetracker", "releasetracker.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("RELTRACK_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("RELTRACK_TELEGRAM_TOKEN"); v != "" {
		c.TelegramToken = v
	}
	if v := os.Getenv("RELTRACK_MODERATOR_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ModeratorChatID = n
		}
	}
	if v := os.Getenv("RELTRACK_DEFAULT_DESTINATION"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.DefaultDestination = n
		}
	}
	if v := os.Getenv("RELTRACK_YOUTUBE_API_KEY"); v != "" {
		c.YouTubeAPIKey = v
	}
	if v := os.Getenv("RELTRACK_START_DATE"); v != "" {
		c.StartDate = v
	}
	if v := os.Getenv("RELTRACK_CHECK_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CheckIntervalHours = n
		}
	}
	if v := os.Getenv("RELTRACK_GENERATOR_ENDPOINT"); v != "" {
		c.GeneratorEndpoint = v
	}
	if v := os.Getenv("RELTRACK_GENERATOR_MODEL"); v != "" {
		c.GeneratorModel = v
	}
	if v := os.Getenv("RELTRACK_GENERATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GeneratorTimeout = d
		}
	}
	if v := os.Getenv("RELTRACK_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("RELTRACK_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("RELTRACK_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
}

// CheckInterval returns the cycle interval as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalHours) * time.Hour
}

// DayWindow returns the inclusive UTC day window to track. An empty
// StartDate means the current UTC day.
func (c *Config) DayWindow() (time.Time, time.Time, error) {
	var begin time.Time
	if c.StartDate == "" {
		now := time.Now().UTC()
		begin = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse("2006-01-02", c.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start_date %q: %w", c.StartDate, err)
		}
		begin = t.UTC()
	}
	end := begin.Add(24*time.Hour - time.Microsecond)
	return begin, end, nil
}

// Validate checks that configuration values are valid and consistent.
// Missing credentials are fatal here, before anything starts.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("telegram_token must be set")
	}
	if c.ModeratorChatID == 0 {
		return fmt.Errorf("moderator_chat_id must be set")
	}
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("youtube_api_key must be set")
	}
	if c.GeneratorEndpoint == "" {
		return fmt.Errorf("generator_endpoint must be set")
	}
	if c.GeneratorModel == "" {
		return fmt.Errorf("generator_model must be set")
	}
	if c.CheckIntervalHours <= 0 {
		return fmt.Errorf("check_interval_hours must be positive")
	}
	if c.StartDate != "" {
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return fmt.Errorf("start_date must be formatted 2006-01-02")
		}
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}
