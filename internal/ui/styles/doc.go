// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the nice-tui client.

# Palette System (colors.go)

Two fixed palettes, Dark and Light, carry the same color roles. The active
palette is chosen from the synced theme setting via PaletteFor, not from
terminal background detection: the server's theme value wins and the client
persists it so the next launch starts on the right palette before the first
sync completes.

Roles are semantic, never raw hex at call sites:

	Accent        - teal brand accent: prompts, focus, active rows
	Violet        - assistant accent: bubbles, TTS status
	Emerald/Amber - active and pending memory, success and warning states
	Rose          - errors, destructive confirmation buttons
	Surface*      - layered backgrounds
	Text*         - hierarchical text colors

# Theme System (theme.go)

Theme bundles one lipgloss.Style per rendered component (drawer rows,
message bubbles, status pill, modal cards, settings sections, memory rows,
the visualization frame). Rebuild the Theme when the theme setting changes:

	theme := styles.NewTheme("dark")
	theme.SetSize(width, height)
	switch theme.GetLayoutMode() {
	case styles.LayoutWide: // sidebar + transcript + viz
	}

# Animation System (animations.go)

Spinner frame sets for the status pill (thinking, transcribing, speaking),
the hold-to-talk pulse, slider rendering for persona traits, and the shared
frame intervals for the visualization and recording tickers.
*/
package styles
