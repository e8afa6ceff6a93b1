package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Workspace WorkspaceConfig
	AutoSave  AutoSaveConfig
	Remote    RemoteConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8900" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
}

// WorkspaceConfig holds document storage configuration.
type WorkspaceConfig struct {
	DocumentsDir string `envconfig:"DOCUMENTS_DIR" default:"./documents" toml:"documents_dir"`
	IndexFile    string `envconfig:"INDEX_FILE" default:"./documents/workspaces.json" toml:"index_file"`
	// Delay between successive visual opens while loading a workspace.
	OpenDelayMS int `envconfig:"OPEN_DELAY_MS" default:"100" toml:"open_delay_ms"`
}

// AutoSaveConfig holds autosave pipeline configuration.
type AutoSaveConfig struct {
	SaveOnFocusLoss bool `envconfig:"SAVE_ON_FOCUS_LOSS" default:"true" toml:"save_on_focus_loss"`
	SaveOnMovement  bool `envconfig:"SAVE_ON_MOVEMENT" default:"true" toml:"save_on_movement"`
	// Trailing-edge debounce windows.
	DebounceMS         int `envconfig:"AUTOSAVE_DEBOUNCE_MS" default:"1000" toml:"debounce_ms"`
	MovementDebounceMS int `envconfig:"MOVEMENT_DEBOUNCE_MS" default:"1000" toml:"movement_debounce_ms"`
	// Periodic interval-save; zero disables the ticker.
	IntervalSeconds int `envconfig:"AUTOSAVE_INTERVAL_SECONDS" default:"300" toml:"interval_seconds"`
	// Destinations: any non-empty subset of {local_file, remote_server}.
	LocalEnabled  bool `envconfig:"DEST_LOCAL_ENABLED" default:"true" toml:"local_enabled"`
	RemoteEnabled bool `envconfig:"DEST_REMOTE_ENABLED" default:"false" toml:"remote_enabled"`
	// Write a gzip archive copy next to each local save.
	ArchiveCopies bool `envconfig:"DEST_LOCAL_ARCHIVE" default:"false" toml:"archive_copies"`
}

// RemoteConfig holds the notebook-server destination configuration.
type RemoteConfig struct {
	URL       string `envconfig:"REMOTE_URL" default:"http://localhost:8888" toml:"url"`
	Token     string `envconfig:"REMOTE_TOKEN" default:"" toml:"token"`
	TimeoutMS int    `envconfig:"REMOTE_TIMEOUT_MS" default:"10000" toml:"timeout_ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// RemoteTimeout returns the remote write timeout as a duration.
func (c RemoteConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Debounce returns the workspace autosave debounce window.
func (c AutoSaveConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// MovementDebounce returns the per-window movement debounce window.
func (c AutoSaveConfig) MovementDebounce() time.Duration {
	return time.Duration(c.MovementDebounceMS) * time.Millisecond
}

// Interval returns the periodic save interval; zero means disabled.
func (c AutoSaveConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// OpenDelay returns the pacing delay for visual opens.
func (c WorkspaceConfig) OpenDelay() time.Duration {
	return time.Duration(c.OpenDelayMS) * time.Millisecond
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from environment, then overlays a TOML
// file on top. Environment defaults fill anything the file omits.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8900",
			Host: "0.0.0.0",
		},
		Workspace: WorkspaceConfig{
			DocumentsDir: "./documents",
			IndexFile:    "./documents/workspaces.json",
			OpenDelayMS:  100,
		},
		AutoSave: AutoSaveConfig{
			SaveOnFocusLoss:    true,
			SaveOnMovement:     true,
			DebounceMS:         1000,
			MovementDebounceMS: 1000,
			IntervalSeconds:    300,
			LocalEnabled:       true,
		},
		Remote: RemoteConfig{
			URL:       "http://localhost:8888",
			TimeoutMS: 10000,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
