// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/config"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/settings"
	"github.com/niceassistant/nice-tui/internal/ui/components"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

type fakeStream struct{}

func (fakeStream) Start() error { return nil }
func (fakeStream) Stop() error  { return nil }
func (fakeStream) Close() error { return nil }

// fakeAudioBackend satisfies audio.Backend without hardware.
type fakeAudioBackend struct {
	mu         sync.Mutex
	captureErr error
	onSamples  func([]int16)
}

func (b *fakeAudioBackend) Initialize() error { return nil }
func (b *fakeAudioBackend) Terminate() error  { return nil }

func (b *fakeAudioBackend) OpenCapture(hint string, rates []int, onSamples func([]int16)) (audio.Stream, audio.CaptureFormat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.captureErr != nil {
		return nil, audio.CaptureFormat{}, b.captureErr
	}
	b.onSamples = onSamples
	return fakeStream{}, audio.CaptureFormat{SampleRate: 16000, Channels: 1}, nil
}

func (b *fakeAudioBackend) feed(chunk []int16) {
	b.mu.Lock()
	cb := b.onSamples
	b.mu.Unlock()
	if cb != nil {
		cb(chunk)
	}
}

func (b *fakeAudioBackend) OpenPlayback(sampleRate, channels int, fill func(out []int16) bool) (audio.Stream, error) {
	return fakeStream{}, nil
}

// requestLog records which API paths the model actually hit.
type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.paths {
		if p == path {
			n++
		}
	}
	return n
}

func newTestServer(t *testing.T, log *requestLog) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/workspaces", func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "ws-1", "workspaces": []any{}})
	})
	mux.HandleFunc("/api/personas", func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"id": "p-1", "personas": []any{}})
	})
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "settings": map[string]any{}})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestModel(t *testing.T, backend *fakeAudioBackend, log *requestLog) *Model {
	t.Helper()
	if backend == nil {
		backend = &fakeAudioBackend{}
	}
	if log == nil {
		log = &requestLog{}
	}
	srv := newTestServer(t, log)

	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	diag := api.NewDiagnostics(client, 100, "")
	diag.SetEnabled(false)

	cfg := config.Default()
	engine := audio.NewEngineWithBackend(backend)
	t.Cleanup(func() { engine.Close() })

	m := NewModel(client, diag, cfg, engine)
	m.resize(120, 40)
	m.auth = AuthSignedIn
	return m
}

func signedInWithChat(t *testing.T, m *Model) {
	t.Helper()
	m.currentChat = &model.Chat{ID: "c-1", PersonaID: "p-1", Title: "First"}
	m.selectedPersona = "p-1"
	m.messages = []model.ChatMessage{
		{ID: "m-1", Role: "user", Text: "hello", CreatedAt: 10},
		{ID: "m-2", Role: "assistant", Text: "hi there", CreatedAt: 11},
	}
	m.refreshMessagePane()
}

// =============================================================================
// SEND GUARDS
// =============================================================================

func TestSendWhileInFlightIsNoOp(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("second message")
	m.isSending = true

	before := len(m.messages)
	cmd := m.sendCurrent()

	assert.Nil(t, cmd)
	assert.Len(t, m.messages, before, "no optimistic append while a send is in flight")
	assert.Equal(t, "second message", m.composer.Value(), "draft must survive the rejected send")
}

func TestSendEmptyDraftIsNoOp(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("   \n  ")

	assert.Nil(t, m.sendCurrent())
	assert.Len(t, m.messages, 2)
}

func TestSendWithoutChatOpensPersonaPicker(t *testing.T) {
	m := newTestModel(t, nil, nil)
	m.personas = []model.Persona{{ID: "p-1", Name: "Assistant"}}
	m.composer.SetValue("hello")

	cmd := m.sendCurrent()

	assert.Nil(t, cmd)
	assert.True(t, m.personaPicker)
	assert.Contains(t, m.uiError, "selecting a persona")
	assert.Equal(t, "hello", m.composer.Value())
}

func TestSendAppendsPlaceholderAndClearsComposer(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("what's the weather")

	cmd := m.sendCurrent()

	require.NotNil(t, cmd)
	assert.True(t, m.isSending)
	assert.Empty(t, m.composer.Value())
	require.Len(t, m.messages, 3)
	last := m.messages[2]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "what's the weather", last.Text)
	assert.Contains(t, last.ID, pendingIDPrefix)
}

// =============================================================================
// SEND RESULTS
// =============================================================================

func TestFailedSendRemovesExactlyPlaceholder(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("doomed")
	require.NotNil(t, m.sendCurrent())
	placeholderID := m.messages[2].ID

	m.applySendResult(sendResultMsg{
		Gen:           m.chatGen,
		PlaceholderID: placeholderID,
		Err:           errors.New("backend down"),
	})

	assert.False(t, m.isSending)
	require.Len(t, m.messages, 2, "only the placeholder is removed")
	assert.Equal(t, "m-1", m.messages[0].ID)
	assert.Equal(t, "m-2", m.messages[1].ID)
	assert.Equal(t, components.StatusIdle, m.status.Status())
	assert.Contains(t, m.uiError, "backend down")
}

func TestStaleSendResultIsDiscarded(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("msg for old chat")
	require.NotNil(t, m.sendCurrent())
	staleGen := m.chatGen

	// The user switched chats mid-flight.
	m.chatGen++

	m.applySendResult(sendResultMsg{
		Gen:           staleGen,
		PlaceholderID: m.messages[2].ID,
		Err:           errors.New("too late"),
	})

	assert.Len(t, m.messages, 3, "stale result must not touch the transcript")
	assert.Empty(t, m.uiError)
	assert.Equal(t, components.StatusIdle, m.status.Status())
}

func TestSendSuccessWithImageOfferOpensModal(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.composer.SetValue("draw me something")
	require.NotNil(t, m.sendCurrent())

	m.applySendResult(sendResultMsg{
		Gen:           m.chatGen,
		PlaceholderID: m.messages[2].ID,
		Result: &model.ChatTurnResult{
			Text:       "Here you go",
			ChatID:     "c-1",
			ImageOffer: &model.ImageOffer{Prompt: "a sunset"},
		},
	})

	assert.True(t, m.modal.IsVisible())
	assert.Equal(t, modalImageOffer, m.modal.ID())
	require.NotNil(t, m.pendingOffer)
	assert.Equal(t, "a sunset", m.pendingOffer.Prompt)
}

// =============================================================================
// TTS GATING
// =============================================================================

func TestVoiceDisabledSkipsSynthesis(t *testing.T) {
	log := &requestLog{}
	m := newTestModel(t, nil, log)
	signedInWithChat(t, m)
	m.voiceEnabled = false

	cmd := m.synthesizeReplyCmd("Hello out loud", "m-2")

	assert.Nil(t, cmd)
	assert.Zero(t, log.count("/api/tts"), "no synthesis request when voice responses are off")
}

func TestUnspeakableReplySkipsSynthesis(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.voiceEnabled = true

	assert.Nil(t, m.synthesizeReplyCmd("![image](/files/x.png)", "m-2"))
	assert.Nil(t, m.synthesizeReplyCmd("", "m-2"))
}

// =============================================================================
// RECORDING
// =============================================================================

func TestPermissionDeniedBlocksCapture(t *testing.T) {
	backend := &fakeAudioBackend{captureErr: audio.ErrPermission}
	log := &requestLog{}
	m := newTestModel(t, backend, log)
	signedInWithChat(t, m)

	cmd := m.startRecording()

	assert.Nil(t, cmd)
	assert.Equal(t, audio.StateIdle, m.recorder.State())
	assert.Contains(t, m.uiError, "permission")
	assert.Zero(t, log.count("/api/stt"), "no transcription request after a failed capture")
}

func TestAudioDisabledBlocksAllAudioPaths(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.cfg.Audio.Enabled = false
	m.settings["general_voice_responses"] = true
	m.settings["tts_provider"] = "openai"
	m.settings["general_show_viz"] = true

	assert.Nil(t, m.startRecording())
	assert.Equal(t, audio.StateIdle, m.recorder.State())
	assert.Contains(t, m.uiError, "Audio is disabled")

	m.audioCache["m-2"] = audio.Clip{}
	assert.Nil(t, m.replayMessage("m-2"))
	assert.Empty(t, m.playingMsgID)

	m.recomputeDerivedFlags()
	assert.False(t, m.voiceEnabled, "config kill switch beats the server setting")
	assert.False(t, m.showViz)
	assert.Nil(t, m.synthesizeReplyCmd("Hello out loud", "m-2"))
}

func TestRecordingBlockedWhileSending(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.isSending = true

	assert.Nil(t, m.startRecording())
	assert.Equal(t, audio.StateIdle, m.recorder.State())
}

func TestToggleRecordingStartsThenStops(t *testing.T) {
	backend := &fakeAudioBackend{}
	m := newTestModel(t, backend, nil)
	signedInWithChat(t, m)

	cmd := m.toggleRecording()
	require.NotNil(t, cmd)
	assert.Equal(t, audio.StateRecording, m.recorder.State())
	assert.Equal(t, components.StatusRecording, m.status.Status())

	backend.feed(make([]int16, 1600))
	stop := m.toggleRecording()
	require.NotNil(t, stop)
	assert.Equal(t, audio.StateIdle, m.recorder.State())
	assert.True(t, m.isTranscribing)
	assert.Equal(t, components.StatusTranscribing, m.status.Status())
}

func TestEmptyRecordingGetsItsOwnMessage(t *testing.T) {
	m := newTestModel(t, &fakeAudioBackend{}, nil)
	signedInWithChat(t, m)

	require.NotNil(t, m.toggleRecording())
	// Stop before any samples arrive.
	assert.Nil(t, m.toggleRecording())

	assert.Contains(t, m.uiError, "Nothing was recorded")
	assert.False(t, m.isTranscribing)
	assert.Equal(t, components.StatusIdle, m.status.Status())
}

// =============================================================================
// ESCAPE PRIORITY
// =============================================================================

func TestEscapeClosesOverlaysInPriorityOrder(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.personaPicker = true
	m.imagePreview = "/files/a.png"
	m.avatarPreview = "/files/b.png"
	m.showSettings = true

	m.handleEscape()
	assert.False(t, m.personaPicker, "picker closes first")
	assert.NotEmpty(t, m.imagePreview)

	m.handleEscape()
	assert.Empty(t, m.imagePreview, "image preview closes second")
	assert.NotEmpty(t, m.avatarPreview)

	m.handleEscape()
	assert.Empty(t, m.avatarPreview, "avatar preview closes third")
	assert.True(t, m.showSettings)

	m.handleEscape()
	assert.False(t, m.showSettings, "settings closes last")
}

func TestOpenModalConsumesKeys(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.modal.Show("confirm", "Sure?", "",
		components.ModalButton{Label: "Yes"},
		components.ModalButton{Label: "No"})
	m.composer.SetValue("")

	_, _ = m.updateKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})

	assert.Empty(t, m.composer.Value(), "keystrokes must not leak past an open modal")
	assert.True(t, m.modal.IsVisible())
}

// =============================================================================
// SCROLL
// =============================================================================

func TestStickToBottomFollowsNewMessages(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.msgPane.Height = 4
	for i := 0; i < 30; i++ {
		m.messages = append(m.messages, model.ChatMessage{
			ID: "x", Role: "assistant", Text: "line", CreatedAt: int64(20 + i),
		})
	}

	m.stickToBottom = true
	m.refreshMessagePane()
	assert.True(t, m.msgPane.AtBottom())
}

func TestScrolledAwayPositionSurvivesRefresh(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.msgPane.Height = 4
	for i := 0; i < 30; i++ {
		m.messages = append(m.messages, model.ChatMessage{
			ID: "x", Role: "assistant", Text: "line", CreatedAt: int64(20 + i),
		})
	}
	m.stickToBottom = false
	m.refreshMessagePane()
	m.msgPane.SetYOffset(3)

	m.refreshMessagePane()
	assert.Equal(t, 3, m.msgPane.YOffset, "reading position is preserved while scrolled away")
}

func TestWorkspaceBadgeHandlesMultibyteNames(t *testing.T) {
	assert.Equal(t, "M", workspaceBadge("main"))
	assert.Equal(t, "É", workspaceBadge("école"))
	assert.Equal(t, "日", workspaceBadge("日本語"))
	assert.Equal(t, "", workspaceBadge(""))
}

// =============================================================================
// REFRESH FAILURE
// =============================================================================

func TestChatsSortedByRecentActivity(t *testing.T) {
	chats := []model.Chat{
		{ID: "a", UpdatedAt: 100},
		{ID: "b", UpdatedAt: 300},
		{ID: "c", UpdatedAt: 200},
	}
	sorted := sortChatsByActivity(chats)
	require.Len(t, sorted, 3)
	assert.Equal(t, "b", sorted[0].ID)
	assert.Equal(t, "c", sorted[1].ID)
	assert.Equal(t, "a", sorted[2].ID)
	assert.Equal(t, "a", chats[0].ID, "input slice untouched")
}

func TestRelativeAgeBuckets(t *testing.T) {
	now := time.Now().Unix()
	assert.Equal(t, "", relativeAge(0))
	assert.Equal(t, "now", relativeAge(now))
	assert.Equal(t, "5m", relativeAge(now-5*60))
	assert.Equal(t, "3h", relativeAge(now-3*3600))
	assert.Equal(t, "2d", relativeAge(now-2*86400))
}

func TestRefreshStoresSessionDeadline(t *testing.T) {
	m := newTestModel(t, nil, nil)
	expires := time.Now().Add(30 * time.Minute).Unix()

	m.applyRefresh(refreshResultMsg{
		Workspaces: []model.Workspace{{ID: "ws-1", Name: "Main"}},
		Settings:   settings.Defaults(),
		Session:    &model.SessionInfo{TTLSeconds: 1800, ExpiresAt: expires},
	})

	assert.Equal(t, AuthSignedIn, m.auth)
	assert.Equal(t, time.Unix(expires, 0), m.sessionExpires)
	assert.Equal(t, 30*time.Minute, m.sessionTTL)
}

func TestRefreshFailureSignsOut(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	genBefore := m.chatGen

	m.applyRefresh(refreshResultMsg{Err: errors.New("401")})

	assert.Equal(t, AuthSignedOut, m.auth)
	assert.Nil(t, m.currentChat)
	assert.Empty(t, m.messages)
	assert.Greater(t, m.chatGen, genBefore, "in-flight results for the old session are invalidated")
}

func TestStaleSessionExpiryIsIgnored(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.settings["general_auto_logout"] = true
	m.sessionTTL = time.Hour
	m.lastActivity = time.Now()
	m.armSessionTimer()

	// A rearm after the expiry was scheduled invalidates it.
	gen := m.timer.Arm(time.Now(), time.Hour, func(uint64) {})
	m.armSessionTimer()

	cmd := m.handleSessionExpired(sessionExpiredMsg{Generation: gen})
	assert.Nil(t, cmd)
	assert.Equal(t, AuthSignedIn, m.auth, "stale expiry must not sign the user out")
}

// =============================================================================
// ONBOARDING
// =============================================================================

func TestOnboardingCreatesWorkspacePersonaAndMarksDone(t *testing.T) {
	log := &requestLog{}
	m := newTestModel(t, nil, log)
	m.workspaces = nil
	m.settings["onboarding_done"] = 0

	require.True(t, m.needsOnboarding())
	m.startOnboarding()
	require.NotNil(t, m.onboarding)

	// Accept the defaults on all three steps.
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	m.updateOnboardingKey(enter)
	m.updateOnboardingKey(enter)
	finish := m.updateOnboardingKey(enter)
	require.NotNil(t, finish)
	assert.Nil(t, m.onboarding, "wizard closes when setup starts")

	msg := finish()
	mutated, ok := msg.(chatMutatedMsg)
	require.True(t, ok)
	require.NoError(t, mutated.Err)

	assert.Equal(t, 1, log.count("/api/workspaces"))
	assert.Equal(t, 1, log.count("/api/personas"))
	assert.Equal(t, 1, log.count("/api/settings"))
	assert.True(t, m.settings.Bool("onboarding_done"))
}

func TestOnboardingSkippedWhenWorkspacesExist(t *testing.T) {
	m := newTestModel(t, nil, nil)
	m.workspaces = []model.Workspace{{ID: "ws-1", Name: "Main"}}
	m.settings["onboarding_done"] = 0
	assert.False(t, m.needsOnboarding())

	m.workspaces = nil
	m.settings["onboarding_done"] = 1
	assert.False(t, m.needsOnboarding())
}

// =============================================================================
// SETTINGS DEBOUNCE
// =============================================================================

func TestSettingsDebounceOnlyLatestFlushRuns(t *testing.T) {
	m := newTestModel(t, nil, nil)

	m.queueSettingsSave()
	first := m.pendingSaveSeq
	m.queueSettingsSave()

	assert.Nil(t, m.flushSettingsSave(settingsFlushMsg{Seq: first}),
		"a superseded flush is a no-op")
	assert.NotNil(t, m.flushSettingsSave(settingsFlushMsg{Seq: m.pendingSaveSeq}))
	assert.Nil(t, m.flushSettingsSave(settingsFlushMsg{Seq: m.pendingSaveSeq}),
		"a second flush for the same change has nothing to save")
}

// =============================================================================
// DERIVED FLAGS
// =============================================================================

func TestDerivedFlagsFollowSettings(t *testing.T) {
	m := newTestModel(t, nil, nil)
	m.settings["general_show_system_messages"] = true
	m.settings["general_show_thinking"] = true
	m.settings["general_voice_responses"] = true
	m.settings["tts_provider"] = "openai"
	m.settings["general_show_viz"] = true

	m.recomputeDerivedFlags()
	assert.True(t, m.showSystemMessages)
	assert.True(t, m.showThinkingAlways)
	assert.True(t, m.voiceEnabled)
	assert.True(t, m.showViz)

	m.settings["tts_provider"] = "disabled"
	m.recomputeDerivedFlags()
	assert.False(t, m.voiceEnabled, "a disabled provider overrides the voice toggle")
}

func TestImageReplyWithAltTextRendersClean(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)

	out := m.renderMessage(model.ChatMessage{
		ID:   "m-3",
		Role: "assistant",
		Text: "Here it is ![a holiday card](/files/card.png)",
	}, false)

	assert.NotContains(t, out, "![")
	assert.NotContains(t, out, "/files/card.png")
	assert.Contains(t, out, "image")
}

func TestSystemMessagesFilteredFromTranscript(t *testing.T) {
	m := newTestModel(t, nil, nil)
	signedInWithChat(t, m)
	m.messages = append(m.messages,
		model.ChatMessage{ID: "s-1", Role: "system", Text: "memory saved"},
		model.ChatMessage{ID: "t-1", Role: "tool", Text: "lookup result"})

	m.showSystemMessages = false
	require.Len(t, m.visibleMessages(), 2)
	for _, msg := range m.visibleMessages() {
		assert.NotEqual(t, "system", msg.Role)
		assert.NotEqual(t, "tool", msg.Role)
	}

	m.showSystemMessages = true
	assert.Len(t, m.visibleMessages(), 4)
}
