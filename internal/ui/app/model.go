// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the application state store and render engine of the
// nice-tui client. One Model holds every piece of UI state; Update mutates
// it and View rebuilds the whole frame from it. The visualization runs on
// its own frame ticker, decoupled from the render cycle.
package app

import (
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/config"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/session"
	"github.com/niceassistant/nice-tui/internal/settings"
	"github.com/niceassistant/nice-tui/internal/ui/components"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
	"github.com/niceassistant/nice-tui/internal/viz"
)

// =============================================================================
// AUTH STATE
// =============================================================================

// AuthState is the tri-state session status.
type AuthState int

const (
	AuthUnknown AuthState = iota // startup, first refresh pending
	AuthSignedOut
	AuthSignedIn
)

// =============================================================================
// FOCUS TARGETS
// =============================================================================

// Focus names the control that currently receives plain keystrokes.
type Focus int

const (
	FocusComposer Focus = iota
	FocusDrawer
	FocusSearch
)

// scrollStickThresholdLines is how far above the bottom the user must
// scroll before the pane stops following new messages. The reference
// threshold was ~130 device pixels; at cell granularity that is a handful
// of lines.
const scrollStickThresholdLines = 6

// settingsToastDuration is how long the "Saved" toast stays up.
const settingsToastDuration = 2500 * time.Millisecond

// settingsSaveDebounce delays preference writes while the user is still
// flipping values.
const settingsSaveDebounce = 350 * time.Millisecond

// Model is the single application state object. It is created once in
// NewModel and mutated in place for the life of the program.
type Model struct {
	// Collaborators.
	client *api.Client
	diag   *api.Diagnostics
	cfg    *config.Config

	// send posts a message into the running program from outside the
	// Update loop (timer callbacks, playback completion). Wired by
	// SetProgram; a no-op until then.
	send func(msg tea.Msg)

	audioEngine *audio.Engine
	recorder    *audio.Recorder
	player      *audio.Player
	analyser    *audio.Analyser
	vizEngine   *viz.Engine
	timer       *session.Timer

	// Identity / session.
	auth           AuthState
	sessionExpires time.Time
	sessionTTL     time.Duration
	lastActivity   time.Time

	// Catalog data, refreshed wholesale.
	chats      []model.Chat
	personas   []model.Persona
	workspaces []model.Workspace
	models     []string
	memory     []model.MemoryItem
	settings   settings.Settings

	// Conversation focus.
	currentChat     *model.Chat
	messages        []model.ChatMessage
	selectedPersona string
	selectedModel   string
	selectedMemory  string

	// Derived flags, recomputed after every refresh.
	showSystemMessages bool
	showThinkingAlways bool
	voiceEnabled       bool
	showViz            bool

	// Chat generation token: bumped on every chat switch and sign-out so
	// late async results for an older chat are discarded.
	chatGen uint64

	// Transient UI.
	focus            Focus
	composer         textarea.Model
	search           textinput.Model
	loginUser        textinput.Model
	loginPass        textinput.Model
	authError        string
	uiError          string
	settingsError    string
	settingsToast    string
	accountToast     string
	isSending        bool
	isTranscribing   bool
	isSynthesizing   bool
	stickToBottom    bool
	savedScrollPos   int
	expandedThinking map[string]bool

	// Overlays, rendered in fixed stacking order.
	modal          *components.Modal
	personaPicker  bool
	pickerList     *components.DrawerList
	imagePreview   string // server image path, "" when closed
	avatarPreview  string
	showSettings   bool
	settingsState  settingsState
	onboarding     *onboardingState
	pendingOffer   *model.ImageOffer
	pendingPrompt  string // editable image prompt in the generate modal
	promptInput    textinput.Model
	renameInput    textinput.Model
	renaming       bool

	// Transcript message cursor for per-message actions, -1 when none.
	msgCursor int

	// Debounced settings persistence.
	pendingSaveSeq int
	saveQueued     bool

	lastVizFrame time.Time

	// Audio / playback.
	audioCache   map[string]audio.Clip // message id -> synthesized clip
	playingMsgID string

	// Chrome.
	theme      *styles.Theme
	banner     *components.Banner
	status     *components.StatusPill
	chatList   *components.DrawerList
	markdown   *components.Markdown
	msgPane    viewport.Model
	width      int
	height     int
	ready      bool
	statusTick int
}

// NewModel wires the application model from its collaborators.
func NewModel(client *api.Client, diag *api.Diagnostics, cfg *config.Config, engine *audio.Engine) *Model {
	theme := styles.NewTheme(cfg.UI.Theme)
	analyser := audio.NewAnalyser()

	composer := textarea.New()
	composer.Placeholder = "Message…"
	composer.CharLimit = 0
	composer.SetHeight(3)
	composer.ShowLineNumbers = false
	composer.Focus()

	search := textinput.New()
	search.Placeholder = "Search chats"

	loginUser := textinput.New()
	loginUser.Placeholder = "Username"
	loginUser.Focus()
	loginPass := textinput.New()
	loginPass.Placeholder = "Password"
	loginPass.EchoMode = textinput.EchoPassword

	rename := textinput.New()
	rename.Placeholder = "Chat title"

	prompt := textinput.New()
	prompt.Placeholder = "Image prompt"
	prompt.CharLimit = 0

	m := &Model{
		client: client,
		diag:   diag,
		cfg:    cfg,

		audioEngine: engine,
		recorder:    audio.NewRecorder(engine, cfg.Audio.InputDevice, cfg.Audio.SampleRates),
		analyser:    analyser,
		timer:       session.NewTimer(),

		auth:     AuthUnknown,
		settings: settings.Defaults(),

		composer:         composer,
		search:           search,
		loginUser:        loginUser,
		loginPass:        loginPass,
		renameInput:      rename,
		promptInput:      prompt,
		msgCursor:        -1,
		stickToBottom:    true,
		expandedThinking: make(map[string]bool),
		audioCache:       make(map[string]audio.Clip),

		theme:    theme,
		banner:   components.NewBanner(theme),
		status:   components.NewStatusPill(theme),
		chatList: components.NewDrawerList(theme),
		markdown: components.NewMarkdown(cfg.UI.Theme != "light"),
		msgPane:  viewport.New(80, 20),
	}
	m.player = audio.NewPlayer(engine, analyser)
	m.pickerList = components.NewDrawerList(theme)
	m.modal = components.NewModal(theme)
	m.vizEngine = viz.New(viz.DefaultConfig(), audio.BinCount, rand.New(rand.NewSource(time.Now().UnixNano())))
	m.settingsState = newSettingsState(theme)
	m.send = func(tea.Msg) {}
	return m
}

// SetProgram wires the running tea.Program so out-of-loop callbacks can
// post messages.
func (m *Model) SetProgram(p *tea.Program) {
	m.send = func(msg tea.Msg) { p.Send(msg) }
}

// setTheme rebuilds the theme and re-themes every component.
func (m *Model) setTheme(name string) {
	m.theme = styles.NewTheme(name)
	m.theme.SetSize(m.width, m.height)
	m.banner.SetTheme(m.theme)
	m.status.SetTheme(m.theme)
	m.chatList.SetTheme(m.theme)
	m.pickerList.SetTheme(m.theme)
	m.modal.SetTheme(m.theme)
	m.markdown.SetDark(name != "light")
	m.settingsState.setTheme(m.theme)
	if m.cfg.UI.Theme != name {
		m.cfg.UI.Theme = name
		// Persisting the theme locally stands in for the browser's
		// localStorage: the next launch starts on the right palette.
		_ = config.Save(m.cfg)
	}
}

// personaByID returns the persona, or nil.
func (m *Model) personaByID(id string) *model.Persona {
	for i := range m.personas {
		if m.personas[i].ID == id {
			return &m.personas[i]
		}
	}
	return nil
}

// workspaceByID returns the workspace, or nil.
func (m *Model) workspaceByID(id string) *model.Workspace {
	for i := range m.workspaces {
		if m.workspaces[i].ID == id {
			return &m.workspaces[i]
		}
	}
	return nil
}

// chatByID returns the chat, or nil.
func (m *Model) chatByID(id string) *model.Chat {
	for i := range m.chats {
		if m.chats[i].ID == id {
			return &m.chats[i]
		}
	}
	return nil
}

// touchActivity records qualifying user activity and rearms the session
// timer from the new activity time.
func (m *Model) touchActivity() {
	m.lastActivity = time.Now()
	m.armSessionTimer()
}

// setUIError surfaces an error on the main chat banner and logs it to the
// diagnostics channel.
func (m *Model) setUIError(text string) {
	m.uiError = text
	if text != "" && m.diag != nil {
		m.diag.Log(api.EventUIError, text, nil)
	}
}
