// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for nice-tui.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display current configuration
//   set <key> <value>   Set a configuration value
//   reset               Reset to default configuration
//   path                Show configuration file path
//
// Configuration keys use dotted section paths:
//   server.base_url     Backend base URL
//   ui.theme            Local theme fallback (dark/light)
//   ui.download_dir     Directory for saved images
//   audio.enabled       Enable audio features (true/false)
//   audio.input_device  Capture device name substring
//   diagnostics.enabled Post diagnostic events to the backend
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/niceassistant/nice-tui/internal/config"
)

// RunConfig dispatches the config subcommands.
func RunConfig(args *Args) int {
	switch args.Sub {
	case "", "show":
		return configShow(args.JSON)
	case "set":
		return configSet(args.ConfigKey, args.ConfigVal)
	case "reset":
		return configReset()
	case "path":
		return configPath()
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args.Sub)
		return 1
	}
}

func configShow(asJSON bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if asJSON {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}
	fmt.Printf("server.base_url       %s\n", cfg.Server.BaseURL)
	fmt.Printf("ui.theme              %s\n", cfg.UI.Theme)
	fmt.Printf("ui.download_dir       %s\n", cfg.UI.DownloadDir)
	fmt.Printf("audio.enabled         %v\n", cfg.Audio.Enabled)
	fmt.Printf("audio.input_device    %s\n", valueOr(cfg.Audio.InputDevice, "(default)"))
	fmt.Printf("diagnostics.enabled   %v\n", cfg.Diagnostics.Enabled)
	return 0
}

func configSet(key, value string) int {
	if key == "" || value == "" {
		fmt.Fprintln(os.Stderr, "usage: nice-tui config set <key> <value>")
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	switch key {
	case "server.base_url":
		cfg.Server.BaseURL = value
	case "ui.theme":
		if value != "dark" && value != "light" {
			fmt.Fprintln(os.Stderr, "ui.theme must be dark or light")
			return 1
		}
		cfg.UI.Theme = value
	case "ui.download_dir":
		cfg.UI.DownloadDir = value
	case "audio.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audio.enabled: %v\n", err)
			return 1
		}
		cfg.Audio.Enabled = b
	case "audio.input_device":
		cfg.Audio.InputDevice = value
	case "diagnostics.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diagnostics.enabled: %v\n", err)
			return 1
		}
		cfg.Diagnostics.Enabled = b
	default:
		fmt.Fprintf(os.Stderr, "unknown config key: %s\n", key)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	fmt.Printf("%s = %s\n", key, value)
	return 0
}

func configReset() int {
	if err := config.Save(config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	fmt.Println("Configuration reset to defaults.")
	return 0
}

func configPath() int {
	path, err := config.ConfigPathTOML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	fmt.Println(path)
	return 0
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
