// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for nice-tui.
//
// Command: doctor
// Short:   Run connection and audio health checks
// Aliases: diag
//
// Health Checks Performed:
//   1. Config Valid      - Configuration file loads and validates
//   2. Server Reachable  - Backend responds over HTTP
//   3. Auth Endpoint     - Login endpoint answers (no credentials sent)
//   4. Audio Backend     - PortAudio initializes and finds an input device
//   5. Download Dir      - Image download directory is writable
//
// Flags:
//   --json              Output in JSON format
//
// Exit Codes:
//   0   All checks passed
//   1   One or more checks failed
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/config"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // pass, warn, fail
	Detail string `json:"detail"`
}

// RunDoctor runs the health checks and prints results.
func RunDoctor(args *Args) int {
	cfg, cfgErr := config.Load()
	if cfg == nil {
		cfg = config.Default()
	}
	if args.ServerURL != "" {
		cfg.Server.BaseURL = args.ServerURL
	}

	results := []checkResult{
		checkConfig(cfgErr),
		checkServer(cfg),
		checkAuth(cfg),
		checkAudio(cfg),
		checkDownloadDir(cfg),
	}

	failed := false
	for _, r := range results {
		if r.Status == "fail" {
			failed = true
		}
	}

	if args.JSON {
		out, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(out))
	} else {
		for _, r := range results {
			symbol := "✓"
			if r.Status == "warn" {
				symbol = "!"
			} else if r.Status == "fail" {
				symbol = "✗"
			}
			fmt.Printf("  %s %-18s %s\n", symbol, r.Name, r.Detail)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func checkConfig(err error) checkResult {
	if err != nil {
		return checkResult{"Config Valid", "fail", err.Error()}
	}
	return checkResult{"Config Valid", "pass", "configuration loads"}
}

func checkServer(cfg *config.Config) checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Server.BaseURL+"/api/session", nil)
	if err != nil {
		return checkResult{"Server Reachable", "fail", err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return checkResult{"Server Reachable", "fail",
			fmt.Sprintf("cannot reach %s: %v", cfg.Server.BaseURL, err)}
	}
	resp.Body.Close()
	return checkResult{"Server Reachable", "pass", cfg.Server.BaseURL}
}

func checkAuth(cfg *config.Config) checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Server.BaseURL+"/api/login", nil)
	if err != nil {
		return checkResult{"Auth Endpoint", "fail", err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return checkResult{"Auth Endpoint", "warn", err.Error()}
	}
	resp.Body.Close()
	// Any HTTP answer counts; an empty login is expected to be rejected.
	return checkResult{"Auth Endpoint", "pass", fmt.Sprintf("responds (%d)", resp.StatusCode)}
}

func checkAudio(cfg *config.Config) checkResult {
	if !cfg.Audio.Enabled {
		return checkResult{"Audio Backend", "warn", "audio disabled in config"}
	}
	engine := audio.NewEngine()
	if err := engine.EnsureGraph(); err != nil {
		return checkResult{"Audio Backend", "warn", err.Error()}
	}
	defer engine.Close()
	return checkResult{"Audio Backend", "pass", "portaudio initialized"}
}

func checkDownloadDir(cfg *config.Config) checkResult {
	dir := cfg.UI.DownloadDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return checkResult{"Download Dir", "warn", err.Error()}
		}
		dir = filepath.Join(home, "Downloads")
	}
	probe := filepath.Join(dir, ".nice-tui-probe")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return checkResult{"Download Dir", "warn", err.Error()}
	}
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return checkResult{"Download Dir", "warn", err.Error()}
	}
	os.Remove(probe)
	return checkResult{"Download Dir", "pass", dir}
}
