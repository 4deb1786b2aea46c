// nice-tui - A terminal client for the Nice Assistant backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/cli"
	"github.com/niceassistant/nice-tui/internal/config"
	"github.com/niceassistant/nice-tui/internal/ui/app"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Run 'nice-tui help' for usage.")
		os.Exit(1)
	}

	switch args.Command {
	case cli.CmdVersion:
		os.Exit(cli.RunVersion(args))
	case cli.CmdHelp:
		os.Exit(cli.RunHelp())
	case cli.CmdConfig:
		os.Exit(cli.RunConfig(args))
	case cli.CmdDoctor:
		os.Exit(cli.RunDoctor(args))
	case cli.CmdTUI:
		os.Exit(runTUI(args))
	}
}

func runTUI(args *cli.Args) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	// Command-line flags win over the config file for this run only.
	if args.ServerURL != "" {
		cfg.Server.BaseURL = args.ServerURL
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	if args.NoAudio {
		cfg.Audio.Enabled = false
	}
	config.SetGlobal(cfg)

	client, err := api.NewClient(cfg.Server.BaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		return 1
	}
	client = client.WithTimeouts(cfg.Server.RequestTimeout, cfg.Server.LongRequestTimeout)

	diag := api.NewDiagnostics(client, cfg.Diagnostics.EventsPerSecond, cfg.Diagnostics.LogFile)
	diag.SetEnabled(cfg.Diagnostics.Enabled)

	engine := audio.NewEngine()
	defer engine.Close()

	model := app.NewModel(client, diag, cfg, engine)
	program := tea.NewProgram(model, tea.WithAltScreen())
	model.SetProgram(program)

	// Config edits on disk show up live, like a browser picking up
	// localStorage changes from another tab.
	watcher, err := config.Watch(func(next *config.Config) {
		program.Send(app.ConfigReloaded(next))
	})
	if err == nil {
		defer watcher.Close()
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "nice-tui: %v\n", err)
		return 1
	}
	return 0
}
