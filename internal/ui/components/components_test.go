// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewTheme("dark")
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// MODAL
// =============================================================================

func TestModalResolvesSelectedButton(t *testing.T) {
	m := NewModal(testTheme())
	m.Show("confirm-image", "Receive image?", "The assistant offered an image.",
		ModalButton{Label: "Yes"}, ModalButton{Label: "No"})
	require.True(t, m.IsVisible())
	require.Equal(t, "confirm-image", m.ID())

	_, handled := m.Update(keyMsg("right"))
	require.True(t, handled)

	cmd, handled := m.Update(keyMsg("enter"))
	require.True(t, handled)
	require.NotNil(t, cmd)

	result, ok := cmd().(ModalResultMsg)
	require.True(t, ok)
	assert.Equal(t, "confirm-image", result.ID)
	assert.Equal(t, 1, result.Choice)
	assert.False(t, m.IsVisible())
}

func TestModalEscapeDismisses(t *testing.T) {
	m := NewModal(testTheme())
	m.Show("delete-chat", "Delete chat?", "",
		ModalButton{Label: "Delete", Danger: true}, ModalButton{Label: "Cancel"})

	cmd, handled := m.Update(keyMsg("esc"))
	require.True(t, handled)
	result := cmd().(ModalResultMsg)
	assert.Equal(t, ModalDismissed, result.Choice)
	assert.False(t, m.IsVisible())
}

func TestModalFocusWrapsInsideButtonRow(t *testing.T) {
	m := NewModal(testTheme())
	m.Show("m", "T", "", ModalButton{Label: "A"}, ModalButton{Label: "B"}, ModalButton{Label: "C"})

	// Tab cycles forward and wraps; the modal consumes every key.
	for i := 0; i < 3; i++ {
		_, handled := m.Update(keyMsg("tab"))
		require.True(t, handled)
	}
	cmd, _ := m.Update(keyMsg("enter"))
	assert.Equal(t, 0, cmd().(ModalResultMsg).Choice)
}

func TestModalConsumesUnboundKeysWhileOpen(t *testing.T) {
	m := NewModal(testTheme())
	m.Show("m", "T", "", ModalButton{Label: "OK"})

	cmd, handled := m.Update(keyMsg("x"))
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.True(t, m.IsVisible())
}

func TestModalHiddenPassesEventsThrough(t *testing.T) {
	m := NewModal(testTheme())
	_, handled := m.Update(keyMsg("enter"))
	assert.False(t, handled)
	assert.Empty(t, m.View())
}

// =============================================================================
// STATUS PILL
// =============================================================================

func TestStatusPillSingleState(t *testing.T) {
	p := NewStatusPill(testTheme())
	assert.Empty(t, p.View())

	p.Set(StatusThinking)
	assert.Contains(t, p.View(), "Thinking")
	assert.True(t, p.Busy())

	// A new activity replaces the previous one outright.
	p.Set(StatusSpeaking)
	assert.Contains(t, p.View(), "Speaking")
	assert.NotContains(t, p.View(), "Thinking")
	assert.False(t, p.Busy())

	p.SetError("network unreachable")
	assert.Contains(t, p.View(), "network unreachable")

	// Leaving the error state clears the message.
	p.Set(StatusIdle)
	assert.Empty(t, p.View())
	p.SetError("boom")
	p.Set(StatusThinking)
	assert.NotContains(t, p.View(), "boom")
}

func TestStatusPillRecordingShowsElapsed(t *testing.T) {
	p := NewStatusPill(testTheme())
	p.Set(StatusRecording)
	p.SetElapsed(83 * time.Second)
	assert.Contains(t, p.View(), "1:23")
}

// =============================================================================
// DRAWER LIST
// =============================================================================

func drawerItems(ids ...string) []DrawerItem {
	items := make([]DrawerItem, len(ids))
	for i, id := range ids {
		items[i] = DrawerItem{ID: id, Title: "Chat " + id}
	}
	return items
}

func TestDrawerSelectionSticksToIDAcrossRefresh(t *testing.T) {
	d := NewDrawerList(testTheme())
	d.SetSize(30, 5)
	d.SetItems(drawerItems("a", "b", "c"))
	d.MoveDown()
	d.MoveDown()
	require.Equal(t, "c", d.SelectedID())

	// A refresh reorders the list; selection follows the ID.
	d.SetItems(drawerItems("c", "a", "b"))
	assert.Equal(t, "c", d.SelectedID())

	// When the selected row disappears, selection resets to the top.
	d.SetItems(drawerItems("a", "b"))
	assert.Equal(t, "a", d.SelectedID())
}

func TestDrawerScrollFollowsSelection(t *testing.T) {
	d := NewDrawerList(testTheme())
	d.SetSize(30, 3)
	d.SetItems(drawerItems("1", "2", "3", "4", "5", "6"))

	for i := 0; i < 5; i++ {
		d.MoveDown()
	}
	assert.Equal(t, "6", d.SelectedID())
	assert.Contains(t, d.View(), "Chat 6")
	assert.NotContains(t, d.View(), "Chat 1")

	for i := 0; i < 10; i++ {
		d.MoveUp()
	}
	assert.Equal(t, "1", d.SelectedID())
}

func TestDrawerEmptyState(t *testing.T) {
	d := NewDrawerList(testTheme())
	d.SetItems(nil)
	assert.Equal(t, "", d.SelectedID())
	assert.Contains(t, d.View(), "empty")
}

// =============================================================================
// BANNER
// =============================================================================

func TestBannerCountdown(t *testing.T) {
	b := NewBanner(testTheme())
	b.SetWidth(80)
	b.SetContext("Main Workspace", "Assistant")
	b.SetDeadline(time.Now().Add(5 * time.Minute))

	out := b.View()
	assert.Contains(t, out, "Nice Assistant")
	assert.Contains(t, out, "Main Workspace / Assistant")
	assert.Contains(t, out, "4:5") // ~4:59 remaining

	b.SetDeadline(time.Time{})
	assert.NotContains(t, b.View(), ":5")
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "0:05", formatCountdown(5*time.Second))
	assert.Equal(t, "29:59", formatCountdown(29*time.Minute+59*time.Second))
	assert.Equal(t, "1:00:00", formatCountdown(time.Hour))
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownRendersAndFallsBack(t *testing.T) {
	m := NewMarkdown(true)
	m.SetWidth(60)

	out := m.Render("**bold** text")
	assert.NotEmpty(t, out)

	assert.Empty(t, m.Render("   "))
}
