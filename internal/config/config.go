// Package config loads server settings from defaults, a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/erazemk/garderoba/internal/model"
)

// Environment variables read by ApplyEnv.
const (
	EnvWeatherAPIKey = "OPENWEATHER_API_KEY"
	EnvRedisAddr     = "GARDEROBA_REDIS_ADDR"
	EnvDefaultCity   = "GARDEROBA_DEFAULT_CITY"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete server configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Weather     WeatherConfig     `toml:"weather"`
	Suggestions SuggestionsConfig `toml:"suggestions"`
}

// ServerConfig covers the listener, database and sessions.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	DBPath     string `toml:"db_path"`
	LogPath    string `toml:"log_path"`
	AdminUser  string `toml:"admin_user"`
	SessionTTL string `toml:"session_ttl"` // e.g. "168h"
}

// WeatherConfig covers the OpenWeatherMap client and its cache.
type WeatherConfig struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	DefaultCity string `toml:"default_city"`
	CacheTTL    string `toml:"cache_ttl"`  // e.g. "10m", "0s" disables caching
	RedisAddr   string `toml:"redis_addr"` // empty keeps the cache in memory
}

// SuggestionsConfig controls the dashboard.
type SuggestionsConfig struct {
	Count          int    `toml:"count"`
	DefaultPurpose string `toml:"default_purpose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			DBPath:     "garderoba.sqlite3",
			AdminUser:  "Admin",
			SessionTTL: "168h",
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.openweathermap.org/data/2.5/weather",
			DefaultCity: "Tokyo",
			CacheTTL:    "10m",
		},
		Suggestions: SuggestionsConfig{
			Count:          3,
			DefaultPurpose: model.PurposeUniversity,
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvWeatherAPIKey); v != "" {
		c.Weather.APIKey = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		c.Weather.RedisAddr = v
	}
	if v := getenv(EnvDefaultCity); v != "" {
		c.Weather.DefaultCity = v
	}
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be caught by the TOML decoder.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is empty", ErrInvalid)
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalid)
	}
	if c.Server.AdminUser == "" {
		return fmt.Errorf("%w: admin username is empty", ErrInvalid)
	}
	if ttl, err := c.SessionTTL(); err != nil || ttl <= 0 {
		return fmt.Errorf("%w: session ttl %q must be a positive duration", ErrInvalid, c.Server.SessionTTL)
	}
	if ttl, err := c.CacheTTL(); err != nil || ttl < 0 {
		return fmt.Errorf("%w: weather cache ttl %q must be a non-negative duration", ErrInvalid, c.Weather.CacheTTL)
	}
	if c.Weather.DefaultCity == "" {
		return fmt.Errorf("%w: default city is empty", ErrInvalid)
	}
	if c.Suggestions.Count <= 0 {
		return fmt.Errorf("%w: suggestion count must be positive, got %d", ErrInvalid, c.Suggestions.Count)
	}
	if !model.ValidPurpose(c.Suggestions.DefaultPurpose) {
		return fmt.Errorf("%w: unknown default purpose %q", ErrInvalid, c.Suggestions.DefaultPurpose)
	}
	return nil
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() (time.Duration, error) {
	return time.ParseDuration(c.Server.SessionTTL)
}

// CacheTTL returns how long weather reports are cached.
func (c *Config) CacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Weather.CacheTTL)
}
