// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/ui/components"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout is the resolved column geometry for the current terminal size.
type layout struct {
	mode             styles.LayoutMode
	sidebarWidth     int
	transcriptWidth  int
	transcriptHeight int
	vizWidth         int
}

func (m *Model) computeLayout() layout {
	l := layout{mode: m.theme.GetLayoutMode()}

	// Banner, status bar, and composer frame take fixed rows.
	chrome := 1 + 1 + 5
	l.transcriptHeight = m.height - chrome
	if l.transcriptHeight < 4 {
		l.transcriptHeight = 4
	}

	switch l.mode {
	case styles.LayoutNarrow:
		l.transcriptWidth = m.width
	case styles.LayoutMedium:
		l.sidebarWidth = 26
		l.transcriptWidth = m.width - l.sidebarWidth - 1
	case styles.LayoutWide:
		l.sidebarWidth = 30
		l.vizWidth = 36
		if m.showViz {
			l.transcriptWidth = m.width - l.sidebarWidth - l.vizWidth - 2
		} else {
			l.vizWidth = 0
			l.transcriptWidth = m.width - l.sidebarWidth - 1
		}
	}
	if l.transcriptWidth < 20 {
		l.transcriptWidth = 20
	}
	return l
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the entire screen from current state. There is no partial
// re-render path; every frame is rebuilt wholesale.
func (m *Model) View() string {
	if !m.ready {
		return "Starting…"
	}
	if m.auth != AuthSignedIn {
		return m.viewAuth()
	}
	if m.showSettings {
		return m.settingsState.view(m, m.width, m.height)
	}

	base := m.viewShell()

	// Overlays stack on top of the shell in fixed order.
	switch {
	case m.modal.IsVisible():
		return m.modal.View()
	case m.personaPicker:
		return m.viewPersonaPicker()
	case m.imagePreview != "":
		return m.viewImagePreview(m.imagePreview, "Generated image")
	case m.avatarPreview != "":
		return m.viewImagePreview(m.avatarPreview, "Persona avatar")
	case m.onboarding != nil:
		return m.viewOnboarding()
	case m.renaming:
		return m.viewRenamePrompt()
	}
	return base
}

func (m *Model) viewShell() string {
	l := m.computeLayout()

	var cols []string
	if l.sidebarWidth > 0 {
		cols = append(cols, m.viewSidebar(l))
	}
	cols = append(cols, m.viewTranscriptColumn(l))
	if l.vizWidth > 0 {
		cols = append(cols, m.viewVizColumn(l))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.banner.View(),
		body,
		m.viewStatusBar(),
	)
}

func (m *Model) viewSidebar(l layout) string {
	var b strings.Builder
	b.WriteString(m.theme.SidebarHeading.Render("Chats"))
	b.WriteString("\n")
	search := m.search.View()
	if m.focus == FocusSearch {
		search = m.theme.SettingValueFocus.Render(m.search.View())
	}
	b.WriteString(search)
	b.WriteString("\n\n")
	b.WriteString(m.chatList.View())
	return m.theme.Sidebar.Width(l.sidebarWidth).Height(l.transcriptHeight).Render(b.String())
}

func (m *Model) viewVizColumn(l layout) string {
	// Half-block cells: each terminal row holds two vertical pixels.
	frame := m.vizEngine.Render(l.vizWidth-2, l.transcriptHeight-2)
	return m.theme.VizFrame.Width(l.vizWidth).Height(l.transcriptHeight).Render(frame)
}

func (m *Model) viewTranscriptColumn(l layout) string {
	transcript := m.msgPane.View()

	composer := m.viewComposer(l)

	parts := []string{transcript}
	if m.uiError != "" {
		parts = append(parts, m.theme.Error.Width(l.transcriptWidth).Render(m.uiError))
	}
	if !m.stickToBottom {
		parts = append(parts, m.theme.Muted.Render("… end to jump to latest"))
	}
	parts = append(parts, composer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) viewComposer(l layout) string {
	prompt := m.theme.ComposerPrompt.Render("❯")
	rec := m.theme.RecordIdle.Render("● rec")
	if m.status.Status() == components.StatusRecording {
		rec = m.theme.RecordActive.Render(styles.RecordingPulse.Frame(m.statusTick) + " rec")
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, prompt, " ", m.composer.View())
	frame := m.theme.Composer.Width(l.transcriptWidth - 2).Render(top)
	return lipgloss.JoinVertical(lipgloss.Left, frame, rec)
}

func (m *Model) viewStatusBar() string {
	left := m.status.View()

	shortcuts := []string{"^N new", "^R talk", "^O settings", "tab focus", "^C quit"}
	var sb strings.Builder
	for i, s := range shortcuts {
		if i > 0 {
			sb.WriteString("  ")
		}
		k, d, _ := strings.Cut(s, " ")
		sb.WriteString(m.theme.ShortcutKey.Render(k))
		sb.WriteString(" ")
		sb.WriteString(m.theme.ShortcutDesc.Render(d))
	}

	toast := ""
	if m.settingsToast != "" {
		toast = m.theme.Success.Render(m.settingsToast)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(sb.String()) - lipgloss.Width(toast) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + toast + " " + sb.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// visibleMessages applies the system-message filter to the transcript.
func (m *Model) visibleMessages() []model.ChatMessage {
	if m.showSystemMessages {
		return m.messages
	}
	out := make([]model.ChatMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		if msg.Role == "system" || msg.Role == "tool" {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// refreshMessagePane rebuilds the transcript content and restores the
// scroll position: pinned to the bottom while the user is there, byte-exact
// otherwise.
func (m *Model) refreshMessagePane() {
	visible := m.visibleMessages()
	var b strings.Builder
	for i, msg := range visible {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, i == m.msgCursor))
		b.WriteString("\n")
	}
	if len(visible) == 0 {
		if m.currentChat == nil {
			b.WriteString(m.theme.Muted.Render("Press ctrl+n to start a chat."))
		} else {
			b.WriteString(m.theme.Muted.Render("Say hello."))
		}
	}

	saved := m.msgPane.YOffset
	m.msgPane.SetContent(b.String())
	if m.stickToBottom {
		m.msgPane.GotoBottom()
	} else {
		m.msgPane.SetYOffset(saved)
	}
}

// trackScroll updates stick-to-bottom after a manual scroll: scrolling
// near the end re-engages it, scrolling up releases it.
func (m *Model) trackScroll() {
	dist := m.msgPane.TotalLineCount() - (m.msgPane.YOffset + m.msgPane.Height)
	m.stickToBottom = dist <= scrollStickThresholdLines
}

func (m *Model) renderMessage(msg model.ChatMessage, cursor bool) string {
	pending := strings.HasPrefix(msg.ID, pendingIDPrefix)
	split := model.SplitThinking(msg.Text)

	var parts []string

	// Thinking renders above the visible body, collapsed to a label
	// unless the global toggle or this message's toggle expands it.
	if split.Thinking != "" && msg.Role == "assistant" {
		if m.showThinkingAlways || m.expandedThinking[msg.ID] {
			parts = append(parts,
				m.theme.ThinkingLabel.Render("thinking"),
				m.theme.ThinkingBlock.Render(split.Thinking))
		} else {
			parts = append(parts, m.theme.ThinkingLabel.Render("▸ thinking (t to expand)"))
		}
	}

	body := split.VisibleText
	if model.ExtractImageURL(body) != "" {
		body = strings.TrimSpace(model.StripImageMarkdown(body))
		parts = append(parts, m.theme.ImageLink.Render("🖼  image · o open · i save"))
	}
	if body != "" {
		if msg.Role == "assistant" {
			body = m.markdown.Render(body)
		}
		parts = append(parts, m.bubbleFor(msg.Role).Render(strings.TrimRight(body, "\n")))
	}

	meta := m.messageMeta(msg, pending)
	if meta != "" {
		parts = append(parts, meta)
	}

	out := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if cursor {
		out = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(m.theme.Palette.Accent).
			Render(out)
	}
	if msg.Role == "user" {
		return lipgloss.PlaceHorizontal(m.msgPane.Width, lipgloss.Right, out)
	}
	return out
}

func (m *Model) bubbleFor(role string) lipgloss.Style {
	switch role {
	case "user":
		return m.theme.UserBubble
	case "system":
		return m.theme.SystemBubble
	default:
		return m.theme.AssistantBubble
	}
}

func (m *Model) messageMeta(msg model.ChatMessage, pending bool) string {
	if pending {
		return m.theme.PendingMarker.Render("sending " + styles.ThinkingSpinner.Frame(m.statusTick))
	}
	marks := make([]string, 0, 2)
	if msg.CreatedAt > 0 {
		marks = append(marks, time.Unix(msg.CreatedAt, 0).Format("15:04"))
	}
	if m.playingMsgID == msg.ID {
		marks = append(marks, styles.SpeakingSpinner.Frame(m.statusTick)+" speaking")
	}
	if len(marks) == 0 {
		return ""
	}
	return m.theme.MessageMeta.Render(strings.Join(marks, " · "))
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) viewAuth() string {
	var b strings.Builder
	b.WriteString(m.theme.AuthTitle.Render("Nice Assistant"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.AuthField.Render(m.loginUser.View()))
	b.WriteString("\n")
	b.WriteString(m.theme.AuthField.Render(m.loginPass.View()))
	b.WriteString("\n\n")
	if m.authError != "" {
		b.WriteString(m.theme.AuthError.Render(m.authError))
		b.WriteString("\n")
	}
	if m.accountToast != "" {
		b.WriteString(m.theme.Success.Render(m.accountToast))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.Muted.Render("enter sign in · ctrl+s create account · ctrl+c quit"))

	card := m.theme.AuthCard.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func (m *Model) viewPersonaPicker() string {
	var b strings.Builder
	b.WriteString(m.theme.ModalTitle.Render("New chat"))
	b.WriteString("\n")
	b.WriteString(m.theme.ModalBody.Render("Pick a persona to talk to."))
	b.WriteString("\n\n")
	b.WriteString(m.pickerList.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render("enter start · esc cancel"))
	card := m.theme.ModalCard.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// viewImagePreview shows a placeholder frame for an image path; terminals
// without an image protocol get the path and save instructions.
func (m *Model) viewImagePreview(path, title string) string {
	var b strings.Builder
	b.WriteString(m.theme.ModalTitle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.theme.ModalBody.Render(path))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Muted.Render("i save to disk · esc close"))
	card := m.theme.ModalCard.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func (m *Model) viewRenamePrompt() string {
	var b strings.Builder
	b.WriteString(m.theme.ModalTitle.Render("Rename chat"))
	b.WriteString("\n\n")
	b.WriteString(m.renameInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.Muted.Render("enter save · esc cancel"))
	card := m.theme.ModalCard.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}
