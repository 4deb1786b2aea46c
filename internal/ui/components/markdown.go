// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Markdown renders assistant message bodies. The glamour renderer is
// rebuilt lazily when the wrap width or palette changes; rendering falls
// back to the raw text on any renderer failure so a bad document never
// blanks a bubble.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdown creates a renderer for the given palette.
func NewMarkdown(dark bool) *Markdown {
	return &Markdown{dark: dark, width: 80}
}

// SetWidth updates the wrap width, invalidating the cached renderer.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width != m.width {
		m.width = width
		m.renderer = nil
	}
}

// SetDark switches between the dark and light glamour styles.
func (m *Markdown) SetDark(dark bool) {
	if dark != m.dark {
		m.dark = dark
		m.renderer = nil
	}
}

// Render returns the styled text for a markdown body.
func (m *Markdown) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if m.renderer == nil {
		style := glamour.WithStandardStyle("light")
		if m.dark {
			style = glamour.WithStandardStyle("dark")
		}
		r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(m.width))
		if err != nil {
			return text
		}
		m.renderer = r
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
