// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small filesystem helpers for nice-tui.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and parent
//     directory creation
//
// # Usage
//
//	// Write the config atomically into a private directory
//	err := util.AtomicWriteFile(path, data, 0600, 0700)
package util
