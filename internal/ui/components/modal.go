// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the nice-tui client.
package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// MODAL
// =============================================================================

// ModalButton is one choice in a modal button row.
type ModalButton struct {
	Label  string
	Danger bool
}

// ModalResultMsg reports the resolved modal choice. Choice is the button
// index, or -1 when the modal was dismissed.
type ModalResultMsg struct {
	ID     string
	Choice int
}

// ModalDismissed is the Choice value for an escaped modal.
const ModalDismissed = -1

// Modal is a centered confirmation card with a horizontal button row.
// Focus stays trapped inside the button row until the modal resolves.
type Modal struct {
	id      string
	title   string
	body    string
	buttons []ModalButton

	visible  bool
	selected int
	width    int
	height   int

	theme *styles.Theme
}

// NewModal creates a hidden modal bound to a theme.
func NewModal(theme *styles.Theme) *Modal {
	return &Modal{theme: theme}
}

// Show opens the modal with the given content. The first button starts
// selected.
func (m *Modal) Show(id, title, body string, buttons ...ModalButton) {
	m.id = id
	m.title = title
	m.body = body
	m.buttons = buttons
	m.selected = 0
	m.visible = true
}

// SetBody replaces the body text while open, preserving the selection.
// Used by modals whose body mirrors an editable input.
func (m *Modal) SetBody(body string) {
	m.body = body
}

// Hide closes the modal without emitting a result.
func (m *Modal) Hide() {
	m.visible = false
	m.buttons = nil
}

// IsVisible reports whether the modal is open.
func (m *Modal) IsVisible() bool {
	return m.visible
}

// ID returns the identifier given to Show, "" when hidden.
func (m *Modal) ID() string {
	if !m.visible {
		return ""
	}
	return m.id
}

// SetTheme swaps the theme on palette change.
func (m *Modal) SetTheme(theme *styles.Theme) {
	m.theme = theme
}

// SetSize updates the centering viewport.
func (m *Modal) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles key events while visible. The second return reports
// whether the event was consumed: an open modal consumes every key.
func (m *Modal) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !m.visible {
		return nil, false
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}

	n := len(m.buttons)
	switch key.String() {
	case "left", "shift+tab":
		if n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}
	case "right", "tab":
		if n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "enter", " ":
		return m.resolve(m.selected), true
	case "esc":
		return m.resolve(ModalDismissed), true
	}
	return nil, true
}

func (m *Modal) resolve(choice int) tea.Cmd {
	id := m.id
	m.Hide()
	return func() tea.Msg {
		return ModalResultMsg{ID: id, Choice: choice}
	}
}

// View renders the modal centered in the viewport, "" when hidden.
func (m *Modal) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := 56
	if m.width > 0 && m.width-8 < boxWidth {
		boxWidth = m.width - 8
	}
	if boxWidth < 30 {
		boxWidth = 30
	}

	var rows []string
	rows = append(rows, m.theme.ModalTitle.Render(m.title))
	if m.body != "" {
		rows = append(rows, m.theme.ModalBody.Width(boxWidth-6).Render(m.body))
	}
	rows = append(rows, m.renderButtons())
	rows = append(rows, m.theme.Muted.Render("enter select · esc cancel"))

	box := m.theme.ModalCard.Width(boxWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...))

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m *Modal) renderButtons() string {
	rendered := make([]string, 0, len(m.buttons))
	for i, b := range m.buttons {
		style := m.theme.ModalButton
		switch {
		case i == m.selected && b.Danger:
			style = m.theme.DangerButtonHot
		case i == m.selected:
			style = m.theme.ModalButtonHot
		case b.Danger:
			style = m.theme.DangerButton
		}
		rendered = append(rendered, style.Render(b.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, rendered...)
}
