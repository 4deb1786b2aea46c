// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/niceassistant/nice-tui/internal/settings"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// SETTINGS SCREEN
// =============================================================================

// view renders the full-screen settings surface. It replaces the shell
// rather than floating over it.
func (s *settingsState) view(m *Model, width, height int) string {
	if s.persona != nil {
		return m.viewPersonaEditor(width, height)
	}

	left := m.viewSectionList()
	right := m.viewSectionDetail(width - 26)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Sidebar.Width(24).Height(height-3).Render(left),
		lipgloss.NewStyle().Width(width - 26).Render(right),
	)

	footer := m.theme.Muted.Render("↑↓ move · ←→ change · enter edit · R reset section · esc back")
	if m.settingsError != "" {
		footer = m.theme.Error.Render(m.settingsError)
	} else if m.settingsToast != "" {
		footer = m.theme.Success.Render(m.settingsToast)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Header.Width(width).Render(m.theme.HeaderBrand.Render("Settings")),
		body,
		m.theme.StatusBar.Width(width).Render(footer),
	)
}

func (m *Model) viewSectionList() string {
	s := &m.settingsState
	var b strings.Builder
	for i, name := range settings.SectionOrder {
		style := m.theme.DrawerRow
		if i == s.sectionIdx {
			style = m.theme.DrawerRowActive
		}
		b.WriteString(style.Render(name))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewSectionDetail(width int) string {
	s := &m.settingsState
	section := m.currentSection()
	fields := m.fieldsFor(section)

	var b strings.Builder
	b.WriteString(m.theme.SettingsSectionTitle.Render(section))
	b.WriteString("\n\n")

	for i, f := range fields {
		focused := s.focusFields && !s.onItems && i == s.fieldIdx
		value := m.settingValueLabel(f)
		if focused && s.editing {
			value = s.editInput.View()
		}
		b.WriteString(m.renderSettingRow(f.label, value, focused, width))
		b.WriteString("\n")
	}

	if sectionHasItems(section) {
		b.WriteString("\n")
		b.WriteString(m.viewSectionItems(section, width))
	}
	return m.theme.SettingsSection.Width(width).Render(b.String())
}

func (m *Model) renderSettingRow(label, value string, focused bool, width int) string {
	valueStyle := m.theme.SettingValue
	if focused {
		valueStyle = m.theme.SettingValueFocus
	}
	l := m.theme.SettingLabel.Render(label)
	v := valueStyle.Render(value)
	gap := width - lipgloss.Width(l) - lipgloss.Width(v) - 4
	if gap < 1 {
		gap = 1
	}
	return l + strings.Repeat(" ", gap) + v
}

func (m *Model) viewSectionItems(section string, width int) string {
	s := &m.settingsState
	var b strings.Builder

	switch section {
	case "Personas":
		b.WriteString(m.theme.SettingsSectionTitle.Render("Your personas"))
		b.WriteString("  ")
		b.WriteString(m.theme.SettingHint.Render("enter edit · n new · a avatar · d delete"))
		b.WriteString("\n")
		if len(m.personas) == 0 {
			b.WriteString(m.theme.Muted.Render("(none yet)"))
			b.WriteString("\n")
		}
		for i, p := range m.personas {
			style := m.theme.PersonaCard
			if s.onItems && i == s.itemIdx {
				style = m.theme.PersonaCardFocus
			}
			line := p.Name
			if p.DefaultModel != "" {
				line += "  " + m.theme.SettingHint.Render(p.DefaultModel)
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	case "Workspaces":
		b.WriteString(m.theme.SettingsSectionTitle.Render("Your workspaces"))
		b.WriteString("  ")
		b.WriteString(m.theme.SettingHint.Render("n new"))
		b.WriteString("\n")
		for i, w := range m.workspaces {
			style := m.theme.DrawerRow
			if s.onItems && i == s.itemIdx {
				style = m.theme.DrawerRowActive
			}
			b.WriteString(style.Render(w.Name))
			b.WriteString("\n")
		}
		if s.creating && s.editing {
			b.WriteString(s.editInput.View())
			b.WriteString("\n")
		}
	case "Memory":
		b.WriteString(m.theme.SettingsSectionTitle.Render("Remembered"))
		b.WriteString("  ")
		b.WriteString(m.theme.SettingHint.Render("d forget"))
		b.WriteString("\n")
		items := m.memoryItemsSorted()
		if len(items) == 0 {
			b.WriteString(m.theme.Muted.Render("Nothing remembered yet."))
			b.WriteString("\n")
		}
		lastTier := ""
		flat := 0
		for _, item := range items {
			if item.Tier != lastTier {
				lastTier = item.Tier
				b.WriteString(m.theme.MemoryTier.Render(strings.ToUpper(item.Tier)))
				b.WriteString("\n")
			}
			style := m.theme.MemoryActive
			if s.onItems && flat == s.itemIdx {
				style = m.theme.DrawerRowActive
			}
			content := item.Content
			if maxw := width - 6; maxw > 8 && len(content) > maxw {
				content = content[:maxw-1] + "…"
			}
			b.WriteString(style.Render(content))
			b.WriteString("\n")
			flat++
		}
	}
	return b.String()
}

// =============================================================================
// PERSONA EDITOR VIEW
// =============================================================================

func (m *Model) viewPersonaEditor(width, height int) string {
	e := m.settingsState.persona
	var b strings.Builder

	title := "New persona"
	if e.id != "" {
		title = "Edit persona"
	}
	b.WriteString(m.theme.SettingsSectionTitle.Render(title))
	b.WriteString("\n\n")

	textVal := func(idx int, stored string) string {
		if e.editing && e.fieldIdx == idx {
			return e.input.View()
		}
		if stored == "" {
			return "(none)"
		}
		return stored
	}

	rows := []struct {
		label string
		value string
	}{
		{"Name", textVal(0, e.name)},
		{"System prompt", textVal(1, e.systemPrompt)},
		{"Default model", orNone(e.defaultModel)},
		{"Voice", orNone(e.ttsVoice)},
		{"Avatar URL", textVal(4, e.avatarURL)},
		{"Warmth", traitRow(e.traits.Warmth)},
		{"Creativity", traitRow(e.traits.Creativity)},
		{"Directness", traitRow(e.traits.Directness)},
		{"Conversational", traitRow(e.traits.Conversational)},
		{"Casual", traitRow(e.traits.Casual)},
		{"Gender", e.traits.Gender},
		{"Age", textVal(11, e.traits.Age)},
	}
	for i, r := range rows {
		b.WriteString(m.renderSettingRow(r.label, r.value, e.fieldIdx == i, width-8))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.SettingsSectionTitle.Render("Workspaces"))
	b.WriteString("\n")
	for i, w := range m.workspaces {
		idx := personaFixedFields + i
		mark := "[ ]"
		if e.workspaces[w.ID] {
			mark = "[x]"
		}
		b.WriteString(m.renderSettingRow(w.Name, mark, e.fieldIdx == idx, width-8))
		b.WriteString("\n")
	}

	if e.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Error.Render(e.errText))
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.Muted.Render("ctrl+s save · esc discard"))

	card := m.theme.ModalCard.Width(width - 8).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func traitRow(v int) string {
	return fmt.Sprintf("%s %3d", styles.RenderSlider(12, float64(v), 0, 100), v)
}
