// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// HEADER BANNER
// =============================================================================

// Banner is the one-line application header: brand on the left, the active
// workspace and chat context in the middle, and the session countdown on
// the right.
type Banner struct {
	brand     string
	workspace string
	context   string // persona or chat title
	deadline  time.Time
	width     int

	theme *styles.Theme
}

// NewBanner creates a banner with the application brand.
func NewBanner(theme *styles.Theme) *Banner {
	return &Banner{theme: theme, brand: "Nice Assistant"}
}

// SetContext updates the workspace and chat labels.
func (b *Banner) SetContext(workspace, context string) {
	b.workspace = workspace
	b.context = context
}

// SetDeadline sets the auto-logout deadline; zero hides the countdown.
func (b *Banner) SetDeadline(deadline time.Time) {
	b.deadline = deadline
}

// SetWidth updates the rendered width.
func (b *Banner) SetWidth(width int) {
	b.width = width
}

// SetTheme swaps the theme on palette change.
func (b *Banner) SetTheme(theme *styles.Theme) {
	b.theme = theme
}

// View renders the banner line.
func (b *Banner) View() string {
	left := b.theme.HeaderBrand.Render(b.brand)
	mid := ""
	if b.workspace != "" {
		mid = b.workspace
		if b.context != "" {
			mid += " / " + b.context
		}
		mid = b.theme.HeaderMeta.Render(mid)
	}

	right := ""
	if !b.deadline.IsZero() {
		if remain := time.Until(b.deadline); remain > 0 {
			right = b.theme.HeaderMeta.Render(formatCountdown(remain))
		}
	}

	line := left
	if mid != "" {
		line += "  " + mid
	}
	if right != "" {
		pad := b.width - runewidth.StringWidth(stripFormatting(line)) - runewidth.StringWidth(stripFormatting(right)) - 4
		if pad < 1 {
			pad = 1
		}
		line += strings.Repeat(" ", pad) + right
	}
	return b.theme.Header.Width(b.width).Render(line)
}

// formatCountdown renders a remaining duration as m:ss or h:mm:ss.
func formatCountdown(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// stripFormatting removes ANSI escape sequences for width measurement.
func stripFormatting(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
