// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/ui/components"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// Modal identifiers. The generic modal is shared; the ID tells the result
// handler which flow resolved.
const (
	modalImageOffer    = "image-offer"
	modalGenerateImage = "generate-image"
	modalDeleteChat    = "delete-chat"
	modalDeletePersona = "delete-persona"
	modalDeleteMemory  = "delete-memory"
	modalRenameChat    = "rename-chat"
)

// Init starts the refresh round, the free-running visualization ticker,
// and the status spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		m.vizTickCmd(),
		statusTickCmd(),
		m.appReadyCmd(),
	)
}

// vizTickCmd schedules the next visualization frame. The loop always
// reschedules; Step itself skips work while hidden.
func (m *Model) vizTickCmd() tea.Cmd {
	return tea.Tick(styles.VizFrameInterval, func(t time.Time) tea.Msg {
		return vizTickMsg(t)
	})
}

func statusTickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// Update is the single mutation entry point.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case vizTickMsg:
		now := time.Time(msg)
		dt := 33.0
		if !m.lastVizFrame.IsZero() {
			dt = float64(now.Sub(m.lastVizFrame).Milliseconds())
		}
		m.lastVizFrame = now
		m.vizEngine.Step(m.analyser, dt)
		return m, m.vizTickCmd()

	case statusTickMsg:
		m.statusTick++
		m.status.Tick()
		return m, statusTickCmd()

	case refreshResultMsg:
		return m, m.applyRefresh(msg)

	case loginResultMsg:
		return m, m.applyLoginResult(msg)

	case logoutMsg:
		return m, nil

	case sessionExpiredMsg:
		return m, m.handleSessionExpired(msg)

	case chatOpenedMsg:
		m.applyChatOpened(msg)
		return m, nil

	case chatCreatedMsg:
		if msg.Err != nil {
			m.setUIError(msg.Err.Error())
			return m, nil
		}
		return m, tea.Batch(m.openChatCmd(msg.ChatID), m.refreshCmd())

	case sendResultMsg:
		return m, m.applySendResult(msg)

	case chatMutatedMsg:
		if msg.Err != nil {
			m.setUIError(msg.Err.Error())
			return m, nil
		}
		return m, m.refreshCmd()

	case imageGeneratedMsg:
		return m, m.applyImageGenerated(msg)

	case ttsResultMsg:
		m.applyTTSResult(msg)
		return m, nil

	case playbackDoneMsg:
		m.applyPlaybackDone(msg)
		return m, nil

	case sttResultMsg:
		m.applySTTResult(msg)
		return m, nil

	case recordTickMsg:
		return m, m.applyRecordTick()

	case components.ModalResultMsg:
		return m, m.applyModalResult(msg)

	case settingsFlushMsg:
		return m, m.flushSettingsSave(msg)

	case settingsSavedMsg:
		return m, m.applySettingsSaved(msg)

	case toastClearMsg:
		m.settingsToast = ""
		return m, nil

	case imageSavedMsg:
		if msg.Err != nil {
			m.setUIError(msg.Err.Error())
		} else {
			m.settingsToast = "Saved " + filepath.Base(msg.Path)
			return m, toastClearCmd()
		}
		return m, nil

	case configReloadedMsg:
		if msg.Config != nil {
			m.cfg = msg.Config
			m.setTheme(m.cfg.UI.Theme)
			m.recomputeDerivedFlags()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
	m.theme.SetSize(width, height)
	m.banner.SetWidth(width)
	m.modal.SetSize(width, height)

	layout := m.computeLayout()
	m.msgPane.Width = layout.transcriptWidth
	m.msgPane.Height = layout.transcriptHeight
	m.composer.SetWidth(layout.transcriptWidth - 2)
	m.markdown.SetWidth(layout.transcriptWidth - 6)
	m.chatList.SetSize(layout.sidebarWidth, layout.transcriptHeight-8)
	m.pickerList.SetSize(46, 12)
	m.refreshMessagePane()
}

// =============================================================================
// KEY ROUTING
// =============================================================================

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.recorder.Abort()
		m.stopPlayback()
		return m, tea.Quit
	}

	// Every qualifying keystroke is user activity.
	m.touchActivity()
	m.diag.Log(api.EventUIKey, key, nil)

	if m.auth != AuthSignedIn {
		return m, m.updateAuthKey(msg)
	}

	// An open modal consumes everything first (focus trap).
	if m.modal.IsVisible() {
		if m.modal.ID() == modalGenerateImage {
			return m, m.updateGenerateModalKey(msg)
		}
		cmd, _ := m.modal.Update(msg)
		return m, cmd
	}

	if key == "esc" {
		return m, m.handleEscape()
	}

	if m.personaPicker {
		return m, m.updatePickerKey(msg)
	}
	if m.showSettings {
		return m, m.updateSettingsKey(msg)
	}
	if m.onboarding != nil {
		return m, m.updateOnboardingKey(msg)
	}
	if m.imagePreview != "" || m.avatarPreview != "" {
		// Previews are passive; only esc (handled above) closes them.
		return m, nil
	}
	if m.renaming {
		return m, m.updateRenameKey(msg)
	}

	return m.updateShellKey(msg)
}

// handleEscape closes the topmost overlay in the fixed priority order:
// generic modal > new-chat picker > image preview > avatar preview >
// settings. The modal case is handled by the focus trap before this runs.
func (m *Model) handleEscape() tea.Cmd {
	switch {
	case m.personaPicker:
		m.personaPicker = false
	case m.imagePreview != "":
		m.imagePreview = ""
	case m.avatarPreview != "":
		m.avatarPreview = ""
	case m.showSettings:
		if !m.settingsState.handleBack() {
			m.showSettings = false
			return m.refreshCmd()
		}
	case m.renaming:
		m.renaming = false
	case m.recorder.State() == audio.StateRecording:
		m.abortRecording()
	case m.uiError != "":
		m.setUIError("")
	}
	return nil
}

// updateShellKey handles keys for the normal shell (no overlay).
func (m *Model) updateShellKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+n":
		m.openPersonaPicker()
		return m, nil
	case "ctrl+o":
		m.openSettings()
		return m, nil
	case "ctrl+r":
		return m, m.toggleRecording()
	case "ctrl+x":
		m.stopPlayback()
		return m, nil
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	case "ctrl+up":
		m.moveMessageCursor(-1)
		return m, nil
	case "ctrl+down":
		m.moveMessageCursor(1)
		return m, nil
	case "end":
		m.stickToBottom = true
		m.msgPane.GotoBottom()
		return m, nil
	}

	// Per-message actions on the message under the cursor.
	if m.msgCursor >= 0 && m.focus != FocusComposer && m.focus != FocusSearch {
		if cmd, handled := m.messageActionKey(key); handled {
			return m, cmd
		}
	}

	switch m.focus {
	case FocusComposer:
		return m.updateComposerKey(msg)
	case FocusDrawer:
		return m, m.updateDrawerKey(msg)
	case FocusSearch:
		return m, m.updateSearchKey(msg)
	}
	return m, nil
}

func (m *Model) cycleFocus(dir int) {
	order := []Focus{FocusComposer, FocusDrawer, FocusSearch}
	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
			break
		}
	}
	m.focus = order[(idx+dir+len(order))%len(order)]

	m.composer.Blur()
	m.search.Blur()
	switch m.focus {
	case FocusComposer:
		m.composer.Focus()
	case FocusSearch:
		m.search.Focus()
	}
}

func (m *Model) updateComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.sendCurrent()
	case "ctrl+j":
		// Insert a newline; enter is reserved for send.
		m.composer.InsertString("\n")
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.msgPane, cmd = m.msgPane.Update(msg)
		m.trackScroll()
		return m, cmd
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) updateDrawerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		m.chatList.MoveUp()
	case "down", "j":
		m.chatList.MoveDown()
	case "enter":
		if id := m.chatList.SelectedID(); id != "" {
			return m.openChatCmd(id)
		}
	case "n":
		m.openPersonaPicker()
	case "r":
		if id := m.chatList.SelectedID(); id != "" {
			m.startRename(id)
		}
	case "d":
		if id := m.chatList.SelectedID(); id != "" {
			m.confirmDeleteChat(id)
		}
	case "/":
		m.focus = FocusSearch
		m.search.Focus()
	}
	return nil
}

func (m *Model) updateSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.focus = FocusDrawer
		m.search.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.syncChatDrawer()
	return cmd
}

func (m *Model) updatePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		m.pickerList.MoveUp()
	case "down", "j":
		m.pickerList.MoveDown()
	case "enter":
		if id := m.pickerList.SelectedID(); id != "" {
			return m.createChatCmd(id)
		}
	}
	return nil
}

func (m *Model) updateRenameKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.renaming = false
		title := strings.TrimSpace(m.renameInput.Value())
		id := m.chatList.SelectedID()
		if title == "" || id == "" {
			return nil
		}
		client := m.client
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			return chatMutatedMsg{Err: client.RenameChat(ctx, id, title)}
		}
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return cmd
}

func (m *Model) startRename(chatID string) {
	title := ""
	if c := m.chatByID(chatID); c != nil {
		title = c.Title
	}
	m.renameInput.SetValue(title)
	m.renameInput.CursorEnd()
	m.renameInput.Focus()
	m.renaming = true
}

func (m *Model) confirmDeleteChat(chatID string) {
	title := chatID
	if c := m.chatByID(chatID); c != nil && c.Title != "" {
		title = c.Title
	}
	m.modal.Show(modalDeleteChat, "Delete chat?",
		"\""+title+"\" will be hidden from your history.",
		components.ModalButton{Label: "Delete", Danger: true},
		components.ModalButton{Label: "Cancel"})
}

// =============================================================================
// MESSAGE CURSOR AND PER-MESSAGE ACTIONS
// =============================================================================

func (m *Model) moveMessageCursor(dir int) {
	visible := m.visibleMessages()
	if len(visible) == 0 {
		m.msgCursor = -1
		return
	}
	if m.msgCursor < 0 {
		m.msgCursor = len(visible) - 1
	} else {
		m.msgCursor += dir
		if m.msgCursor < 0 {
			m.msgCursor = 0
		}
		if m.msgCursor >= len(visible) {
			m.msgCursor = -1 // past the end clears the cursor
			m.stickToBottom = true
		}
	}
	m.refreshMessagePane()
}

// messageActionKey runs a per-message action against the cursor message.
func (m *Model) messageActionKey(key string) (tea.Cmd, bool) {
	visible := m.visibleMessages()
	if m.msgCursor < 0 || m.msgCursor >= len(visible) {
		return nil, false
	}
	msg := visible[m.msgCursor]

	switch key {
	case "y":
		// Copy the visible body, thinking excluded.
		split := model.SplitThinking(msg.Text)
		if err := clipboard.WriteAll(split.VisibleText); err == nil {
			m.settingsToast = "Copied"
			return toastClearCmd(), true
		}
		return nil, true
	case "t":
		m.expandedThinking[msg.ID] = !m.expandedThinking[msg.ID]
		m.refreshMessagePane()
		return nil, true
	case "p":
		return m.replayMessage(msg.ID), true
	case "g":
		if msg.Role == "assistant" {
			m.generateFromReply(msg.ID)
			m.promptInput.SetValue(m.pendingPrompt)
			m.promptInput.Focus()
		}
		return nil, true
	case "s":
		return m.saveMessageToMemory(msg), true
	case "i":
		if url := model.ExtractImageURL(msg.Text); url != "" {
			return m.saveImageCmd(url), true
		}
		return nil, true
	case "o":
		if url := model.ExtractImageURL(msg.Text); url != "" {
			m.imagePreview = url
		}
		return nil, true
	}
	return nil, false
}

// saveMessageToMemory persists a message body as a chat-tier memory item.
func (m *Model) saveMessageToMemory(msg model.ChatMessage) tea.Cmd {
	if m.currentChat == nil {
		return nil
	}
	chatID := m.currentChat.ID
	content := model.SplitThinking(msg.Text).VisibleText
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_, err := client.CreateMemory(ctx, model.TierChat, chatID, content)
		return chatMutatedMsg{Err: err}
	}
}

// saveImageCmd downloads a generated image into the configured directory.
func (m *Model) saveImageCmd(imagePath string) tea.Cmd {
	dir := m.cfg.UI.DownloadDir
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		data, _, err := client.FetchBytes(ctx, imagePath)
		if err != nil {
			return imageSavedMsg{Err: err}
		}
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return imageSavedMsg{Err: err}
			}
			dir = filepath.Join(home, "Downloads")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return imageSavedMsg{Err: err}
		}
		name := filepath.Base(imagePath)
		if name == "." || name == "/" || name == "" {
			name = "image-" + uuid.NewString()[:8] + ".png"
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return imageSavedMsg{Err: err}
		}
		return imageSavedMsg{Path: path}
	}
}

// =============================================================================
// MODAL RESULTS
// =============================================================================

// updateGenerateModalKey routes keys for the editable-prompt modal: the
// prompt input takes text keys, the modal takes navigation keys.
func (m *Model) updateGenerateModalKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc", "tab", "shift+tab", "left", "right":
		cmd, _ := m.modal.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	m.pendingPrompt = m.promptInput.Value()
	m.modal.SetBody(m.pendingPrompt)
	return cmd
}

func (m *Model) applyModalResult(msg components.ModalResultMsg) tea.Cmd {
	switch msg.ID {
	case modalImageOffer:
		if msg.Choice == 0 {
			return m.acceptImageOffer()
		}
		m.pendingOffer = nil // declining performs no further action
	case modalGenerateImage:
		m.promptInput.Blur()
		if msg.Choice == 0 {
			return m.generatePromptCmd()
		}
		m.pendingPrompt = ""
	case modalDeleteChat:
		if msg.Choice == 0 {
			id := m.chatList.SelectedID()
			if id == "" {
				return nil
			}
			if m.currentChat != nil && m.currentChat.ID == id {
				m.currentChat = nil
				m.messages = nil
				m.chatGen++
			}
			client := m.client
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
				defer cancel()
				return chatMutatedMsg{Err: client.DeleteChat(ctx, id)}
			}
		}
	case modalDeletePersona, modalDeleteMemory:
		return m.applySettingsModalResult(msg)
	}
	return nil
}

func toastClearCmd() tea.Cmd {
	return tea.Tick(settingsToastDuration, func(time.Time) tea.Msg {
		return toastClearMsg{}
	})
}
