// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/config"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/settings"
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshResultMsg carries the outcome of one full resynchronization round.
// Models are best-effort and arrive separately from the required group: a
// models failure leaves Models empty without failing the refresh.
type refreshResultMsg struct {
	Models     []string
	Workspaces []model.Workspace
	Personas   []model.Persona
	Chats      []model.Chat
	Settings   settings.Settings
	Memory     []model.MemoryItem
	Session    *model.SessionInfo
	Err        error // non-nil: required group failed, treat as signed out
}

// loginResultMsg reports a login or account-creation attempt.
type loginResultMsg struct {
	Created bool // account-created flow, show toast and stay on the form
	Err     error
}

// logoutMsg reports a completed local sign-out (server call best-effort).
type logoutMsg struct{}

// sessionExpiredMsg fires when the auto-logout deadline passes. Generation
// guards against a stale timer that was rearmed after scheduling.
type sessionExpiredMsg struct {
	Generation uint64
}

// chatOpenedMsg carries a wholesale message reload for one chat.
type chatOpenedMsg struct {
	Gen      uint64
	Chat     *model.Chat
	Messages []model.ChatMessage
	Err      error
}

// chatCreatedMsg reports a new chat created from the persona picker.
type chatCreatedMsg struct {
	ChatID string
	Err    error
}

// sendResultMsg carries the chat-turn outcome. PlaceholderID identifies
// the optimistic message to remove on failure.
type sendResultMsg struct {
	Gen           uint64
	PlaceholderID string
	Result        *model.ChatTurnResult
	Err           error
}

// chatMutatedMsg reports a rename/delete/save-memory style operation that
// should be followed by a refresh.
type chatMutatedMsg struct {
	Err error
}

// imageGeneratedMsg reports an accepted image-offer generation round.
type imageGeneratedMsg struct {
	Gen uint64
	Err error
}

// ttsResultMsg carries a synthesized clip for one message.
type ttsResultMsg struct {
	Gen   uint64
	MsgID string
	Clip  *ttsClip
	Err   error
}

// ttsClip is raw synthesized audio plus its decoded form.
type ttsClip struct {
	Data   []byte
	Format string
}

// playbackDoneMsg fires when the player drains a clip.
type playbackDoneMsg struct {
	MsgID string
}

// sttResultMsg carries a transcription outcome.
type sttResultMsg struct {
	Result *api.STTResult
	Err    error
}

// recordTickMsg refreshes the elapsed-time readout while recording.
type recordTickMsg struct{}

// vizTickMsg drives one visualization frame. The loop always reschedules
// regardless of visibility.
type vizTickMsg time.Time

// statusTickMsg advances status pill spinners.
type statusTickMsg struct{}

// toastClearMsg clears the settings-saved toast.
type toastClearMsg struct{}

// settingsSavedMsg reports a debounced settings persist round.
type settingsSavedMsg struct {
	Err error
}

// settingsFlushMsg fires when the save debounce elapses.
type settingsFlushMsg struct {
	Seq int // matches pendingSaveSeq, stale flushes are ignored
}

// configReloadedMsg arrives from the fsnotify watcher when the config file
// changes on disk.
type configReloadedMsg struct {
	Config *config.Config
}

// ConfigReloaded wraps a reloaded config for posting from outside the
// package (the fsnotify watcher callback in main).
func ConfigReloaded(cfg *config.Config) tea.Msg {
	return configReloadedMsg{Config: cfg}
}

// imageSavedMsg reports a save-image-to-download-dir action.
type imageSavedMsg struct {
	Path string
	Err  error
}
