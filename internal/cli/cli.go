// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for nice-tui.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	ServerURL string
	Theme     string
	NoAudio   bool
	JSON      bool

	// Command-specific
	ConfigKey string
	ConfigVal string
	Sub       string
}

// ParseArgs parses os.Args-style arguments into an Args value.
func ParseArgs(raw []string) (*Args, error) {
	args := &Args{Command: CmdTUI}

	rest := raw
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		switch rest[0] {
		case "tui":
			args.Command = CmdTUI
		case "config":
			args.Command = CmdConfig
		case "doctor", "diag":
			args.Command = CmdDoctor
		case "version", "--version", "-v":
			args.Command = CmdVersion
		case "help", "--help", "-h":
			args.Command = CmdHelp
		default:
			return nil, fmt.Errorf("unknown command: %s", rest[0])
		}
		rest = rest[1:]
	}

	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "--no-audio":
			args.NoAudio = true
		case arg == "--server" || arg == "-s":
			if i+1 >= len(rest) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			args.ServerURL = rest[i]
		case strings.HasPrefix(arg, "--server="):
			args.ServerURL = strings.TrimPrefix(arg, "--server=")
		case arg == "--theme":
			if i+1 >= len(rest) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			args.Theme = rest[i]
		case strings.HasPrefix(arg, "--theme="):
			args.Theme = strings.TrimPrefix(arg, "--theme=")
		case arg == "--version" || arg == "-v":
			args.Command = CmdVersion
		case arg == "--help" || arg == "-h":
			args.Command = CmdHelp
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			// Positional: subcommand, then key, then value.
			switch {
			case args.Sub == "":
				args.Sub = arg
			case args.ConfigKey == "":
				args.ConfigKey = arg
			case args.ConfigVal == "":
				args.ConfigVal = arg
			}
		}
	}
	return args, nil
}

// RunVersion prints version information.
func RunVersion(args *Args) int {
	if args.JSON {
		fmt.Printf(`{"version":%q,"commit":%q,"built":%q,"go":%q}`+"\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return 0
	}
	fmt.Printf("nice-tui %s (%s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
	return 0
}

// RunHelp prints usage.
func RunHelp() int {
	fmt.Fprint(os.Stdout, `nice-tui - terminal client for Nice Assistant

Usage:
  nice-tui [command] [flags]

Commands:
  tui                  Open the chat interface (default)
  config               View and modify configuration
  doctor               Run connection and audio health checks
  version              Print version information
  help                 Show this help

Flags:
  -s, --server URL     Backend base URL (overrides config)
      --theme NAME     Start with theme "dark" or "light"
      --no-audio       Disable audio capture, playback, and visualization
      --json           Machine-readable output (config, doctor, version)

Examples:
  nice-tui
  nice-tui --server http://localhost:8990
  nice-tui config set server.base_url http://localhost:8990
  nice-tui doctor
`)
	return 0
}
