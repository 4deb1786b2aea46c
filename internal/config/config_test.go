// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault verifies defaults validate cleanly.
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.True(t, cfg.Audio.Enabled)
	assert.NotEmpty(t, cfg.Audio.SampleRates)
}

// TestValidate covers the rejection cases.
func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"non-http scheme", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }},
		{"garbage url", func(c *Config) { c.Server.BaseURL = "http://" }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"negative rate", func(c *Config) { c.Diagnostics.EventsPerSecond = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestSaveLoadTOMLRoundTrip writes a config and reads it back.
func TestSaveLoadTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://assistant.example.com"
	cfg.UI.Theme = "light"
	cfg.Audio.InputDevice = "USB Mic"
	require.NoError(t, SaveTOML(cfg, path))

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, "https://assistant.example.com", loaded.Server.BaseURL)
	assert.Equal(t, "light", loaded.UI.Theme)
	assert.Equal(t, "USB Mic", loaded.Audio.InputDevice)
}

// TestSaveLoadJSONRoundTrip writes a JSON config and reads it back.
func TestSaveLoadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Diagnostics.LogFile = "/tmp/nice-tui.log"
	require.NoError(t, SaveJSON(cfg, path))

	loaded := Default()
	require.NoError(t, LoadJSON(loaded, path))
	assert.Equal(t, "/tmp/nice-tui.log", loaded.Diagnostics.LogFile)
}

// TestApplyEnvOverrides verifies environment variables override file values.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NICE_TUI_SERVER", "http://10.0.0.5:8990")
	t.Setenv("NICE_TUI_THEME", "light")
	t.Setenv("NICE_TUI_NO_AUDIO", "true")
	t.Setenv("NICE_TUI_LOG_FILE", "/var/log/nice.log")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://10.0.0.5:8990", cfg.Server.BaseURL)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, "/var/log/nice.log", cfg.Diagnostics.LogFile)
}

// TestSetDefaults verifies zero values from partial files are backfilled.
func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Server.BaseURL = "http://localhost:8990"
	cfg.SetDefaults()
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.NotEmpty(t, cfg.Audio.SampleRates)
}

// TestClone verifies the copy does not share slice storage.
func TestClone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Audio.SampleRates[0] = 1
	assert.NotEqual(t, cfg.Audio.SampleRates[0], clone.Audio.SampleRates[0])
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
