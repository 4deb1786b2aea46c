// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable UI components of the nice-tui
client.

  - Banner: one-line header with brand, workspace context, and the
    auto-logout countdown
  - StatusPill: single-state activity indicator (thinking, transcribing,
    speaking, recording, generating image, error)
  - Modal: centered confirmation card with a focus-trapped button row,
    resolving to a ModalResultMsg
  - DrawerList: keyboard-selected sidebar list for chats, workspaces,
    personas, and memory, keeping selection stable across refreshes
  - Markdown: glamour-backed renderer for assistant message bodies with a
    plain-text fallback

Components hold a *styles.Theme and are re-themed in place when the synced
theme setting changes.
*/
package components
