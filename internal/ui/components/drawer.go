// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// DRAWER LIST
// =============================================================================

// DrawerItem is one row in a sidebar list: chats, workspaces, personas,
// or memory entries.
type DrawerItem struct {
	ID     string
	Title  string
	Meta   string // right-aligned secondary text
	Badge  string // short leading badge, e.g. workspace initial
	Danger bool
}

// DrawerList is a vertically scrolled, keyboard-selected list.
type DrawerList struct {
	items    []DrawerItem
	selected int
	offset   int
	width    int
	visible  int // rows shown at once

	theme *styles.Theme
}

// NewDrawerList creates an empty list.
func NewDrawerList(theme *styles.Theme) *DrawerList {
	return &DrawerList{theme: theme, visible: 10}
}

// SetItems replaces the rows, clamping the selection. Selection sticks to
// the same ID across refreshes when it still exists.
func (d *DrawerList) SetItems(items []DrawerItem) {
	prevID := d.SelectedID()
	d.items = items
	d.selected = 0
	for i, it := range items {
		if it.ID != "" && it.ID == prevID {
			d.selected = i
			break
		}
	}
	d.clampScroll()
}

// Items returns the current rows.
func (d *DrawerList) Items() []DrawerItem {
	return d.items
}

// SetSize updates the rendered width and visible row count.
func (d *DrawerList) SetSize(width, visible int) {
	d.width = width
	if visible > 0 {
		d.visible = visible
	}
	d.clampScroll()
}

// SetTheme swaps the theme on palette change.
func (d *DrawerList) SetTheme(theme *styles.Theme) {
	d.theme = theme
}

// MoveUp and MoveDown shift the selection, clamped at the ends.
func (d *DrawerList) MoveUp() {
	if d.selected > 0 {
		d.selected--
	}
	d.clampScroll()
}

func (d *DrawerList) MoveDown() {
	if d.selected < len(d.items)-1 {
		d.selected++
	}
	d.clampScroll()
}

// SelectID moves the selection to the row with the given ID.
func (d *DrawerList) SelectID(id string) {
	for i, it := range d.items {
		if it.ID == id {
			d.selected = i
			d.clampScroll()
			return
		}
	}
}

// Selected returns the selected item, or a zero item when empty.
func (d *DrawerList) Selected() DrawerItem {
	if d.selected < 0 || d.selected >= len(d.items) {
		return DrawerItem{}
	}
	return d.items[d.selected]
}

// SelectedID returns the selected row's ID, "" when empty.
func (d *DrawerList) SelectedID() string {
	return d.Selected().ID
}

func (d *DrawerList) clampScroll() {
	if d.selected < d.offset {
		d.offset = d.selected
	}
	if d.selected >= d.offset+d.visible {
		d.offset = d.selected - d.visible + 1
	}
	if d.offset < 0 {
		d.offset = 0
	}
}

// View renders the visible window of rows.
func (d *DrawerList) View() string {
	if len(d.items) == 0 {
		return d.theme.Muted.Render("  (empty)")
	}

	end := d.offset + d.visible
	if end > len(d.items) {
		end = len(d.items)
	}

	rows := make([]string, 0, end-d.offset)
	for i := d.offset; i < end; i++ {
		rows = append(rows, d.renderRow(d.items[i], i == d.selected))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (d *DrawerList) renderRow(item DrawerItem, active bool) string {
	style := d.theme.DrawerRow
	if active {
		style = d.theme.DrawerRowActive
	}
	if item.Danger && !active {
		style = style.Foreground(d.theme.Palette.Rose)
	}

	var sb strings.Builder
	if item.Badge != "" {
		sb.WriteString(d.theme.WorkspaceBadge.Render(item.Badge))
		sb.WriteString(" ")
	}
	sb.WriteString(item.Title)

	line := sb.String()
	budget := d.width - 2
	if item.Meta != "" {
		budget -= runewidth.StringWidth(item.Meta) + 1
	}
	if budget > 0 {
		line = runewidth.Truncate(line, budget, "…")
	}
	if item.Meta != "" {
		pad := d.width - 2 - runewidth.StringWidth(line) - runewidth.StringWidth(item.Meta)
		if pad < 1 {
			pad = 1
		}
		line += strings.Repeat(" ", pad) + d.theme.DrawerRowMeta.Render(item.Meta)
	}
	return style.Render(line)
}
