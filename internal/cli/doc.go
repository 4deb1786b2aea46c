// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and implements the non-TUI
// commands (config, doctor, version). The TUI itself is launched by main
// after parsing resolves to CmdTUI.
package cli
