// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/ui/components"
)

// =============================================================================
// CHAT OPEN
// =============================================================================

const sendTimeout = 3 * time.Minute

// pendingIDPrefix marks the optimistic user message until the server copy
// replaces it on refetch.
const pendingIDPrefix = "__pending__"

// openChatCmd switches focus to a chat and reloads its messages wholesale.
// The generation token is bumped first so any in-flight result for the
// previous chat is discarded on arrival.
func (m *Model) openChatCmd(chatID string) tea.Cmd {
	m.chatGen++
	gen := m.chatGen
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		chat, messages, err := client.ChatDetail(ctx, chatID)
		return chatOpenedMsg{Gen: gen, Chat: chat, Messages: messages, Err: err}
	}
}

func (m *Model) applyChatOpened(msg chatOpenedMsg) {
	if msg.Gen != m.chatGen {
		return // user already moved on
	}
	if msg.Err != nil {
		m.setUIError(msg.Err.Error())
		return
	}
	m.currentChat = msg.Chat
	m.messages = msg.Messages
	m.stickToBottom = true
	m.expandedThinking = make(map[string]bool)
	if msg.Chat != nil {
		m.selectedPersona = msg.Chat.PersonaID
		if msg.Chat.MemoryMode != "" {
			m.selectedMemory = msg.Chat.MemoryMode
		}
		if msg.Chat.ModelOverride != "" {
			m.selectedModel = msg.Chat.ModelOverride
		}
		m.chatList.SelectID(msg.Chat.ID)
	}
	m.updateBannerContext()
	m.refreshMessagePane()
}

// =============================================================================
// NEW CHAT
// =============================================================================

// openPersonaPicker shows the new-chat persona selection overlay.
func (m *Model) openPersonaPicker() {
	rows := make([]components.DrawerItem, 0, len(m.personas))
	for _, p := range m.personas {
		rows = append(rows, components.DrawerItem{ID: p.ID, Title: p.Name, Meta: p.DefaultModel})
	}
	m.pickerList.SetItems(rows)
	m.personaPicker = true
}

// createChatCmd creates a chat locked to the chosen persona.
func (m *Model) createChatCmd(personaID string) tea.Cmd {
	m.personaPicker = false
	m.selectedPersona = personaID
	memoryMode := m.selectedMemory
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		id, err := client.CreateChat(ctx, "", personaID, memoryMode)
		return chatCreatedMsg{ChatID: id, Err: err}
	}
}

// =============================================================================
// SEND / REPLY ORCHESTRATION
// =============================================================================

// sendCurrent submits the composer draft. Guards reject a send while one
// is in flight, an empty draft, and a missing chat (which routes into the
// persona picker instead of dropping the input).
func (m *Model) sendCurrent() tea.Cmd {
	if m.isSending {
		return nil
	}
	text := strings.TrimSpace(m.composer.Value())
	if text == "" {
		return nil
	}
	if m.currentChat == nil {
		m.openPersonaPicker()
		m.setUIError("Start a chat by selecting a persona first.")
		return nil
	}

	m.isSending = true
	m.setUIError("")
	m.status.Set(components.StatusThinking)
	m.composer.Reset()

	// Optimistic append with a client-generated placeholder id.
	placeholderID := pendingIDPrefix + uuid.NewString()
	m.messages = append(m.messages, model.ChatMessage{
		ID:        placeholderID,
		Role:      "user",
		Text:      text,
		CreatedAt: time.Now().Unix(),
	})
	m.stickToBottom = true
	m.refreshMessagePane()

	gen := m.chatGen
	client := m.client
	req := api.ChatTurnRequest{
		Text:          text,
		ChatID:        m.currentChat.ID,
		PersonaID:     m.selectedPersona,
		Model:         m.selectedModel,
		MemoryMode:    m.selectedMemory,
		ModelSettings: m.settings.ModelSettingsFor(m.selectedModel),
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		result, err := client.SendChatTurn(ctx, req)
		return sendResultMsg{Gen: gen, PlaceholderID: placeholderID, Result: result, Err: err}
	}
}

// applySendResult finishes a chat turn: reload the message list wholesale
// on success, remove exactly the placeholder on failure, then run the
// optional image-offer and TTS follow-ups.
func (m *Model) applySendResult(msg sendResultMsg) tea.Cmd {
	m.isSending = false

	if msg.Gen != m.chatGen {
		// The user switched chats mid-flight; nothing here may touch the
		// new chat's state.
		m.status.Set(components.StatusIdle)
		return nil
	}

	if msg.Err != nil {
		m.removeMessage(msg.PlaceholderID)
		m.status.Set(components.StatusIdle)
		m.setUIError(msg.Err.Error())
		m.refreshMessagePane()
		return nil
	}

	m.status.Set(components.StatusIdle)

	var cmds []tea.Cmd
	if m.currentChat != nil {
		cmds = append(cmds, m.openChatCmd(m.currentChat.ID))
	}

	if msg.Result != nil {
		if msg.Result.ImageOffer != nil {
			m.pendingOffer = msg.Result.ImageOffer
			m.modal.Show(modalImageOffer, "Receive image?",
				"The assistant offered to generate an image for this reply.",
				components.ModalButton{Label: "Yes"},
				components.ModalButton{Label: "No"})
		}
		if cmd := m.synthesizeReplyCmd(msg.Result.Text, ""); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

// removeMessage deletes exactly the message with the given id.
func (m *Model) removeMessage(id string) {
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

// =============================================================================
// IMAGE OFFER / GENERATION
// =============================================================================

// acceptImageOffer issues the generation request for the pending offer.
func (m *Model) acceptImageOffer() tea.Cmd {
	offer := m.pendingOffer
	m.pendingOffer = nil
	if offer == nil || m.currentChat == nil {
		return nil
	}
	m.status.Set(components.StatusGeneratingImage)

	gen := m.chatGen
	chatID := m.currentChat.ID
	prompt := offer.Prompt
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		err := client.GenerateImage(ctx, prompt, chatID)
		return imageGeneratedMsg{Gen: gen, Err: err}
	}
}

// generateFromReplyCmd opens the editable-prompt modal for a per-message
// generate-image action, drafting a contextual prompt from the transcript.
func (m *Model) generateFromReply(msgID string) {
	var target *model.ChatMessage
	for i := range m.messages {
		if m.messages[i].ID == msgID {
			target = &m.messages[i]
			break
		}
	}
	if target == nil {
		return
	}
	m.pendingPrompt = model.DraftImagePrompt(*target, m.messages)
	m.modal.Show(modalGenerateImage, "Generate image",
		m.pendingPrompt,
		components.ModalButton{Label: "Generate"},
		components.ModalButton{Label: "Cancel"})
}

// generatePromptCmd submits the drafted prompt.
func (m *Model) generatePromptCmd() tea.Cmd {
	if m.currentChat == nil || strings.TrimSpace(m.pendingPrompt) == "" {
		return nil
	}
	m.status.Set(components.StatusGeneratingImage)
	gen := m.chatGen
	chatID := m.currentChat.ID
	prompt := m.pendingPrompt
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		err := client.GenerateImage(ctx, prompt, chatID)
		return imageGeneratedMsg{Gen: gen, Err: err}
	}
}

func (m *Model) applyImageGenerated(msg imageGeneratedMsg) tea.Cmd {
	m.status.Set(components.StatusIdle)
	if msg.Gen != m.chatGen {
		return nil
	}
	if msg.Err != nil {
		m.setUIError(msg.Err.Error())
		return nil
	}
	// The generated image arrives as a synthetic message; refetch.
	if m.currentChat != nil {
		return m.openChatCmd(m.currentChat.ID)
	}
	return nil
}

// =============================================================================
// TTS
// =============================================================================

// synthesizeReplyCmd derives speakable text from a reply and requests
// synthesis when voice responses are on. A nil return means nothing to
// speak: disabled, suppressed failure text, or empty after stripping.
func (m *Model) synthesizeReplyCmd(replyText, msgID string) tea.Cmd {
	if !m.voiceEnabled {
		return nil
	}
	speakable := model.SpeakableText(replyText)
	if speakable == "" {
		return nil
	}

	m.isSynthesizing = true
	m.status.Set(components.StatusSpeaking)

	gen := m.chatGen
	chatID := ""
	if m.currentChat != nil {
		chatID = m.currentChat.ID
	}
	personaID := m.selectedPersona
	format := m.settings.String("tts_format")
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		result, err := client.Synthesize(ctx, speakable, chatID, personaID, format)
		if err != nil {
			return ttsResultMsg{Gen: gen, MsgID: msgID, Err: err}
		}
		data, _, err := client.FetchBytes(ctx, result.AudioURL)
		if err != nil {
			return ttsResultMsg{Gen: gen, MsgID: msgID, Err: err}
		}
		return ttsResultMsg{Gen: gen, MsgID: msgID, Clip: &ttsClip{Data: data, Format: result.Format}}
	}
}

// applyTTSResult decodes and plays a synthesized clip, caching it per
// message for replay.
func (m *Model) applyTTSResult(msg ttsResultMsg) {
	m.isSynthesizing = false
	if msg.Gen != m.chatGen {
		m.status.Set(components.StatusIdle)
		return
	}
	if msg.Err != nil {
		// Voice playback is a best-effort embellishment; surface quietly.
		m.status.Set(components.StatusIdle)
		m.diag.Log(api.EventAPIError, "tts failed", map[string]any{"error": msg.Err.Error()})
		return
	}

	clip, err := audio.DecodeWAV(msg.Clip.Data)
	if err != nil {
		m.status.Set(components.StatusIdle)
		m.diag.Log(api.EventAPIError, "tts decode failed", map[string]any{"error": err.Error()})
		return
	}
	if msg.MsgID != "" {
		m.audioCache[msg.MsgID] = *clip
	}
	m.playClip(clip, msg.MsgID)
}

// playClip starts playback through the shared player, tracking the
// currently playing message.
func (m *Model) playClip(clip *audio.Clip, msgID string) {
	send := m.send
	if err := m.player.Play(clip, func() {
		send(playbackDoneMsg{MsgID: msgID})
	}); err != nil {
		m.status.Set(components.StatusIdle)
		m.playingMsgID = ""
		return
	}
	m.playingMsgID = msgID
	m.status.Set(components.StatusSpeaking)
}

// replayMessage plays a cached clip, or re-synthesizes the message body.
func (m *Model) replayMessage(msgID string) tea.Cmd {
	if !m.cfg.Audio.Enabled {
		return nil
	}
	if clip, ok := m.audioCache[msgID]; ok {
		m.playClip(&clip, msgID)
		return nil
	}
	for _, msg := range m.messages {
		if msg.ID == msgID {
			return m.synthesizeReplyCmd(msg.Text, msgID)
		}
	}
	return nil
}

// stopPlayback halts the shared player and clears the playing marker.
func (m *Model) stopPlayback() {
	m.player.Stop()
	m.playingMsgID = ""
	if m.status.Status() == components.StatusSpeaking {
		m.status.Set(components.StatusIdle)
	}
}

func (m *Model) applyPlaybackDone(msg playbackDoneMsg) {
	if m.playingMsgID == msg.MsgID {
		m.playingMsgID = ""
	}
	if m.status.Status() == components.StatusSpeaking {
		m.status.Set(components.StatusIdle)
	}
}
