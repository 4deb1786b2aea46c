// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/settings"
	"github.com/niceassistant/nice-tui/internal/ui/components"
)

// =============================================================================
// REFRESH PROTOCOL
// =============================================================================

// refreshTimeout bounds one full resynchronization round.
const refreshTimeout = 30 * time.Second

// refreshCmd fetches the whole catalog. Models are best-effort; the
// required group (workspaces, personas, chats, settings, memory, session)
// fails the refresh as a unit, which the caller treats as signed out.
func (m *Model) refreshCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		out := refreshResultMsg{}

		// Best-effort: a models failure yields an empty list without
		// touching auth state.
		if models, err := client.Models(ctx); err == nil {
			out.Models = models
		}

		var err error
		if out.Workspaces, err = client.Workspaces(ctx); err != nil {
			out.Err = err
			return out
		}
		if out.Personas, err = client.Personas(ctx); err != nil {
			out.Err = err
			return out
		}
		if out.Chats, err = client.Chats(ctx); err != nil {
			out.Err = err
			return out
		}
		raw, err := client.Settings(ctx)
		if err != nil {
			out.Err = err
			return out
		}
		out.Settings = settings.Normalize(raw)
		if out.Memory, err = client.MemoryAll(ctx); err != nil {
			out.Err = err
			return out
		}
		if out.Session, err = client.Session(ctx); err != nil {
			out.Err = err
			return out
		}
		return out
	}
}

// applyRefresh folds a refresh result into the state store. Regardless of
// outcome the session timer is rearmed (or cleared) and the next View()
// reflects the new state.
func (m *Model) applyRefresh(msg refreshResultMsg) tea.Cmd {
	if msg.Err != nil {
		// Required-group failure: the session is gone.
		m.auth = AuthSignedOut
		m.diag.SetAuthenticated(false)
		m.timer.Cancel()
		m.currentChat = nil
		m.messages = nil
		m.chatGen++
		return nil
	}

	m.auth = AuthSignedIn
	m.diag.SetAuthenticated(true)

	m.models = msg.Models
	m.workspaces = msg.Workspaces
	m.personas = msg.Personas
	m.chats = sortChatsByActivity(msg.Chats)
	m.settings = msg.Settings
	m.memory = msg.Memory

	if msg.Session != nil {
		m.sessionTTL = time.Duration(msg.Session.TTLSeconds) * time.Second
		m.sessionExpires = time.Unix(msg.Session.ExpiresAt, 0)
	}

	m.recomputeDerivedFlags()
	m.reconcileTheme()
	m.syncChatDrawer()
	m.syncSelections()

	m.lastActivity = time.Now()
	m.armSessionTimer()

	var cmd tea.Cmd
	if m.needsOnboarding() {
		cmd = m.startOnboarding()
	}
	return cmd
}

// recomputeDerivedFlags rebuilds the settings-derived view flags. Audio
// being disabled in the client config (--no-audio) overrides the server's
// voice-response setting.
func (m *Model) recomputeDerivedFlags() {
	m.showSystemMessages = m.settings.Bool("general_show_system_messages")
	m.showThinkingAlways = m.settings.Bool("general_show_thinking")
	m.voiceEnabled = m.cfg.Audio.Enabled &&
		m.settings.Bool("general_voice_responses") &&
		m.settings.String("tts_provider") != "disabled"
	m.showViz = m.cfg.Audio.Enabled && m.settings.Bool("general_show_viz")
	m.vizEngine.SetVisible(m.showViz)
}

// reconcileTheme applies the server-side theme setting. The server wins;
// the resolved value is persisted locally so the next launch starts on it.
func (m *Model) reconcileTheme() {
	theme := m.settings.String("general_theme")
	if theme != "dark" && theme != "light" {
		theme = m.cfg.UI.Theme
	}
	if theme != m.theme.Palette.Name {
		m.setTheme(theme)
	}
}

// armSessionTimer schedules the auto-logout callback. No user means no
// timer; disabling auto-logout cancels outright.
func (m *Model) armSessionTimer() {
	if m.auth != AuthSignedIn {
		m.timer.Cancel()
		return
	}
	if !m.settings.Bool("general_auto_logout") {
		m.timer.Cancel()
		m.banner.SetDeadline(time.Time{})
		return
	}
	ttl := m.sessionTTL
	send := m.send
	m.timer.Arm(m.lastActivity, ttl, func(generation uint64) {
		send(sessionExpiredMsg{Generation: generation})
	})
	m.banner.SetDeadline(m.timer.Deadline(m.lastActivity, ttl))
}

// handleSessionExpired performs the local sign-out, then a best-effort
// server logout.
func (m *Model) handleSessionExpired(msg sessionExpiredMsg) tea.Cmd {
	if msg.Generation != m.timer.Generation() {
		return nil // rearmed since this fired
	}
	m.auth = AuthSignedOut
	m.diag.SetAuthenticated(false)
	m.currentChat = nil
	m.messages = nil
	m.chatGen++
	m.loginUser.Focus()

	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Logout(ctx) // failure silently ignored
		return logoutMsg{}
	}
}

// needsOnboarding reports whether the first-run wizard should open.
func (m *Model) needsOnboarding() bool {
	if m.settings.Bool("onboarding_done") {
		return false
	}
	return len(m.workspaces) == 0
}

// syncChatDrawer rebuilds the drawer rows, applying the search filter.
func (m *Model) syncChatDrawer() {
	filter := strings.ToLower(strings.TrimSpace(m.search.Value()))

	rows := make([]components.DrawerItem, 0, len(m.chats))
	for _, c := range m.chats {
		title := c.Title
		if title == "" {
			if p := m.personaByID(c.PersonaID); p != nil {
				title = p.Name
			} else {
				title = "Untitled chat"
			}
		}
		if filter != "" && !strings.Contains(strings.ToLower(title), filter) {
			continue
		}
		badge := ""
		if ws := m.workspaceByID(c.WorkspaceID); ws != nil {
			badge = workspaceBadge(ws.Name)
		}
		rows = append(rows, components.DrawerItem{
			ID:    c.ID,
			Title: title,
			Meta:  relativeAge(c.UpdatedAt),
			Badge: badge,
		})
	}
	m.chatList.SetItems(rows)
	if m.currentChat != nil {
		m.chatList.SelectID(m.currentChat.ID)
	}
}

// workspaceBadge reduces a workspace name to its uppercased first rune.
func workspaceBadge(name string) string {
	first, size := utf8.DecodeRuneInString(name)
	if size == 0 || first == utf8.RuneError {
		return ""
	}
	return strings.ToUpper(string(first))
}

// relativeAge renders a unix updated-at timestamp as drawer meta text.
func relativeAge(unix int64) string {
	if unix <= 0 {
		return ""
	}
	d := time.Since(time.Unix(unix, 0))
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// syncSelections reconciles focus state against the refreshed catalog.
func (m *Model) syncSelections() {
	if m.currentChat != nil {
		if c := m.chatByID(m.currentChat.ID); c != nil {
			m.currentChat = c
		} else {
			m.currentChat = nil
			m.messages = nil
			m.chatGen++
		}
	}
	if m.selectedPersona != "" && m.personaByID(m.selectedPersona) == nil {
		m.selectedPersona = ""
	}
	if m.selectedModel == "" {
		m.selectedModel = m.settings.String("global_default_model")
	}
	if m.selectedMemory == "" {
		m.selectedMemory = m.settings.String("default_memory_mode")
	}
	m.updateBannerContext()
}

func (m *Model) updateBannerContext() {
	workspace := ""
	if len(m.workspaces) > 0 {
		workspace = m.workspaces[0].Name
	}
	ctx := ""
	if m.currentChat != nil {
		ctx = m.currentChat.Title
		if p := m.personaByID(m.currentChat.PersonaID); p != nil && ctx == "" {
			ctx = p.Name
		}
		if ws := m.workspaceByID(m.currentChat.WorkspaceID); ws != nil {
			workspace = ws.Name
		}
	}
	m.banner.SetContext(workspace, ctx)
}

func sortChatsByActivity(chats []model.Chat) []model.Chat {
	sorted := make([]model.Chat, len(chats))
	copy(sorted, chats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt > sorted[j].UpdatedAt
	})
	return sorted
}

// appReadyCmd posts the startup diagnostic event once.
func (m *Model) appReadyCmd() tea.Cmd {
	diag := m.diag
	return func() tea.Msg {
		diag.Log(api.EventAppReady, "client started", nil)
		return nil
	}
}
