// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nice-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.nice-tui/config.toml
//   - ~/.nice-tui/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/niceassistant/nice-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete nice-tui client configuration.
type Config struct {
	// Server connection
	Server ServerConfig `toml:"server" json:"server"`

	// UI preferences persisted client-side
	UI UIConfig `toml:"ui" json:"ui"`

	// Audio capture/playback preferences
	Audio AudioConfig `toml:"audio" json:"audio"`

	// Diagnostics configuration
	Diagnostics DiagnosticsConfig `toml:"diagnostics" json:"diagnostics"`
}

// ServerConfig holds backend connection settings.
type ServerConfig struct {
	// BaseURL is the Nice Assistant backend base URL.
	BaseURL string `toml:"base_url" json:"base_url"`

	// RequestTimeout bounds most API calls. Chat-turn and image-generation
	// requests use LongRequestTimeout instead.
	RequestTimeout     time.Duration `toml:"request_timeout" json:"request_timeout"`
	LongRequestTimeout time.Duration `toml:"long_request_timeout" json:"long_request_timeout"`
}

// UIConfig holds client-local UI preferences. Theme is the local fallback
// read before login; once settings load, the server-side theme preference
// wins and is written back here when changed.
type UIConfig struct {
	Theme       string `toml:"theme" json:"theme"`
	DownloadDir string `toml:"download_dir" json:"download_dir"`
}

// AudioConfig holds capture and playback preferences.
type AudioConfig struct {
	// Enabled gates all audio features (capture, playback, visualization).
	Enabled bool `toml:"enabled" json:"enabled"`

	// InputDevice selects a capture device by name substring; empty means
	// the system default.
	InputDevice string `toml:"input_device" json:"input_device"`

	// SampleRates lists capture sample rates to probe, in priority order.
	SampleRates []int `toml:"sample_rates" json:"sample_rates"`
}

// DiagnosticsConfig controls the client-side diagnostic event channel.
type DiagnosticsConfig struct {
	// Enabled gates posting events to the backend log endpoint.
	Enabled bool `toml:"enabled" json:"enabled"`

	// EventsPerSecond rate-limits outgoing diagnostic events.
	EventsPerSecond float64 `toml:"events_per_second" json:"events_per_second"`

	// LogFile is the local fallback log path; empty disables the fallback.
	LogFile string `toml:"log_file" json:"log_file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:8990",
			RequestTimeout:     30 * time.Second,
			LongRequestTimeout: 3 * time.Minute,
		},
		UI: UIConfig{
			Theme:       "dark",
			DownloadDir: "",
		},
		Audio: AudioConfig{
			Enabled:     true,
			SampleRates: []int{48000, 44100, 16000},
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:         true,
			EventsPerSecond: 5,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the nice-tui configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nice-tui"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return err
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// LoadFromPath loads configuration from an explicit path, picking the codec
// from the file extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	case ".json":
		if err := LoadJSON(cfg, path); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML location.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// Files are created 0600 since the config may carry a server URL with
// embedded credentials.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# nice-tui configuration file\n")
	buf.WriteString("# Generated by nice-tui - edit with care\n\n")
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url must not be empty")
	}
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("server.base_url must be a valid http(s) URL, got %q", c.Server.BaseURL)
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be \"dark\" or \"light\", got %q", c.UI.Theme)
	}
	if c.Diagnostics.EventsPerSecond < 0 {
		return fmt.Errorf("diagnostics.events_per_second must not be negative")
	}
	return nil
}

// SetDefaults backfills zero values left by partial config files.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = def.Server.RequestTimeout
	}
	if c.Server.LongRequestTimeout <= 0 {
		c.Server.LongRequestTimeout = def.Server.LongRequestTimeout
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if len(c.Audio.SampleRates) == 0 {
		c.Audio.SampleRates = append([]int(nil), def.Audio.SampleRates...)
	}
	if c.Diagnostics.EventsPerSecond == 0 {
		c.Diagnostics.EventsPerSecond = def.Diagnostics.EventsPerSecond
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - NICE_TUI_SERVER: overrides server.base_url
//   - NICE_TUI_THEME: overrides ui.theme
//   - NICE_TUI_NO_AUDIO: set to "1" or "true" to disable audio features
//   - NICE_TUI_LOG_FILE: overrides diagnostics.log_file
func (c *Config) ApplyEnvOverrides() {
	if server := os.Getenv("NICE_TUI_SERVER"); server != "" {
		c.Server.BaseURL = server
	}
	if theme := os.Getenv("NICE_TUI_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if noAudio := os.Getenv("NICE_TUI_NO_AUDIO"); noAudio != "" {
		if noAudio == "1" || strings.ToLower(noAudio) == "true" {
			c.Audio.Enabled = false
		}
	}
	if logFile := os.Getenv("NICE_TUI_LOG_FILE"); logFile != "" {
		c.Diagnostics.LogFile = logFile
	}
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Audio.SampleRates = append([]int(nil), c.Audio.SampleRates...)
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
