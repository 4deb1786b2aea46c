// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/settings"
	"github.com/niceassistant/nice-tui/internal/ui/components"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// SETTINGS STATE
// =============================================================================

// fieldKind is the edit behavior of a settings row.
type fieldKind int

const (
	fieldToggle fieldKind = iota
	fieldEnum
	fieldSlider
	fieldText
	fieldSecret
)

// settingsField describes one editable row on the settings screen.
type settingsField struct {
	key     string
	label   string
	kind    fieldKind
	options []string // fieldEnum
	min     float64  // fieldSlider
	max     float64
	step    float64
}

// settingsState holds the settings screen's transient UI state. The settings
// values themselves live on Model.settings; this is navigation and edit
// buffers only.
type settingsState struct {
	theme *styles.Theme

	sectionIdx  int
	focusFields bool
	fieldIdx    int

	editing   bool
	editInput textinput.Model

	// Item managers under the Personas / Workspaces / Memory sections.
	itemIdx  int
	onItems  bool
	creating bool // workspace name entry via editInput

	persona *personaEditState

	// Target of an open delete confirmation.
	pendingDeleteID string
}

func newSettingsState(theme *styles.Theme) settingsState {
	input := textinput.New()
	input.CharLimit = 0
	return settingsState{theme: theme, editInput: input}
}

func (s *settingsState) setTheme(theme *styles.Theme) {
	s.theme = theme
}

// handleBack unwinds one level of settings navigation. It reports false
// when there is nothing left to unwind and the screen should close.
func (s *settingsState) handleBack() bool {
	switch {
	case s.editing:
		s.editing = false
		s.creating = false
		s.editInput.Blur()
	case s.persona != nil && s.persona.editing:
		s.persona.editing = false
		s.persona.input.Blur()
	case s.persona != nil:
		s.persona = nil
	case s.onItems:
		s.onItems = false
	case s.focusFields:
		s.focusFields = false
	default:
		return false
	}
	return true
}

// personaEditState is the persona editor's draft. Nothing is written to the
// server until the draft saves.
type personaEditState struct {
	id           string // "" while creating
	fieldIdx     int
	editing      bool
	input        textinput.Model
	name         string
	systemPrompt string
	defaultModel string
	ttsVoice     string
	avatarURL    string
	traits       model.Traits
	workspaces   map[string]bool
	errText      string
}

// =============================================================================
// FIELD TABLES
// =============================================================================

var ttsVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// fieldsFor builds the editable rows for the section. Model-dependent
// enums (model list, workspace list) are resolved at call time.
func (m *Model) fieldsFor(section string) []settingsField {
	switch section {
	case "General":
		return []settingsField{
			{key: "general_theme", label: "Theme", kind: fieldEnum, options: []string{"dark", "light"}},
			{key: "general_show_system_messages", label: "Show system messages", kind: fieldToggle},
			{key: "general_show_thinking", label: "Always show thinking", kind: fieldToggle},
			{key: "general_show_viz", label: "Audio visualization", kind: fieldToggle},
			{key: "general_voice_responses", label: "Voice responses", kind: fieldToggle},
			{key: "general_auto_logout", label: "Auto sign-out", kind: fieldToggle},
			{key: "global_default_model", label: "Default model", kind: fieldEnum, options: m.models},
		}
	case "TTS":
		return []settingsField{
			{key: "tts_provider", label: "Provider", kind: fieldEnum, options: []string{"disabled", "openai"}},
			{key: "tts_format", label: "Format", kind: fieldEnum, options: []string{"wav", "mp3"}},
			{key: "tts_voice", label: "Voice", kind: fieldEnum, options: ttsVoices},
			{key: "tts_model", label: "Model", kind: fieldText},
			{key: "tts_speed", label: "Speed", kind: fieldSlider, min: 0.25, max: 4, step: 0.25},
		}
	case "STT":
		langs := make([]string, len(settings.STTLanguages))
		for i, l := range settings.STTLanguages {
			langs[i] = l.Value
		}
		return []settingsField{
			{key: "stt_provider", label: "Provider", kind: fieldEnum, options: []string{"disabled", "openai"}},
			{key: "stt_language", label: "Language", kind: fieldEnum, options: langs},
			{key: "stt_store_recordings", label: "Keep recordings", kind: fieldToggle},
		}
	case "Image Generation":
		return []settingsField{
			{key: "image_provider", label: "Provider", kind: fieldEnum, options: []string{"disabled", "openai"}},
			{key: "image_size", label: "Size", kind: fieldEnum, options: settings.SupportedImageSizes},
			{key: "image_quality", label: "Quality", kind: fieldEnum, options: settings.ImageQualityValues},
		}
	case "Memory":
		return []settingsField{
			{key: "default_memory_mode", label: "Memory mode", kind: fieldEnum, options: []string{"auto", "off"}},
			{key: "memory_auto_save_user_facts", label: "Auto-save user facts", kind: fieldToggle},
		}
	case "User":
		return []settingsField{
			{key: "user_display_name", label: "Display name", kind: fieldText},
			{key: "user_timezone", label: "Timezone", kind: fieldText},
			{key: "openai_api_key", label: "OpenAI API key", kind: fieldSecret},
		}
	case "Personas":
		return []settingsField{
			{key: "personas_default_system_prompt", label: "Default system prompt", kind: fieldText},
		}
	case "Workspaces":
		ids := make([]string, len(m.workspaces))
		for i, w := range m.workspaces {
			ids[i] = w.ID
		}
		return []settingsField{
			{key: "workspaces_default_workspace_id", label: "Default workspace", kind: fieldEnum, options: ids},
		}
	case "Models":
		return []settingsField{
			{key: "models_temperature", label: "Temperature", kind: fieldSlider, min: 0, max: 2, step: 0.1},
			{key: "models_top_p", label: "Top-p", kind: fieldSlider, min: 0, max: 1, step: 0.05},
			{key: "models_num_predict", label: "Max tokens", kind: fieldSlider, min: 16, max: 4096, step: 16},
			{key: "models_presence_penalty", label: "Presence penalty", kind: fieldSlider, min: -2, max: 2, step: 0.1},
			{key: "models_frequency_penalty", label: "Frequency penalty", kind: fieldSlider, min: -2, max: 2, step: 0.1},
		}
	}
	return nil
}

// sectionHasItems reports whether the section shows a managed item list
// below its fields.
func sectionHasItems(section string) bool {
	return section == "Personas" || section == "Workspaces" || section == "Memory"
}

func (m *Model) currentSection() string {
	return settings.SectionOrder[m.settingsState.sectionIdx]
}

// =============================================================================
// ENTRY AND KEY ROUTING
// =============================================================================

func (m *Model) openSettings() {
	m.settingsState.sectionIdx = 0
	m.settingsState.focusFields = false
	m.settingsState.fieldIdx = 0
	m.settingsState.onItems = false
	m.settingsState.persona = nil
	m.settingsError = ""
	m.showSettings = true
}

func (m *Model) updateSettingsKey(msg tea.KeyMsg) tea.Cmd {
	s := &m.settingsState

	if s.persona != nil {
		return m.updatePersonaEditKey(msg)
	}
	if s.editing {
		return m.updateSettingsEditKey(msg)
	}

	section := m.currentSection()
	fields := m.fieldsFor(section)
	key := msg.String()

	if !s.focusFields {
		// Section list has focus.
		switch key {
		case "up", "k":
			if s.sectionIdx > 0 {
				s.sectionIdx--
			}
		case "down", "j":
			if s.sectionIdx < len(settings.SectionOrder)-1 {
				s.sectionIdx++
			}
		case "enter", "right", "l", "tab":
			s.focusFields = true
			s.fieldIdx = 0
			s.onItems = false
		}
		return nil
	}

	if s.onItems {
		return m.updateItemsKey(section, key)
	}

	switch key {
	case "up", "k":
		if s.fieldIdx > 0 {
			s.fieldIdx--
		}
	case "down", "j":
		if s.fieldIdx < len(fields)-1 {
			s.fieldIdx++
		} else if sectionHasItems(section) {
			s.onItems = true
			s.itemIdx = 0
		}
	case "left", "h":
		return m.adjustField(fields[s.fieldIdx], -1)
	case "right", "l":
		return m.adjustField(fields[s.fieldIdx], +1)
	case "enter", " ":
		f := fields[s.fieldIdx]
		switch f.kind {
		case fieldToggle:
			return m.adjustField(f, +1)
		case fieldEnum:
			return m.adjustField(f, +1)
		case fieldText, fieldSecret:
			s.editing = true
			s.editInput.SetValue(m.settings.String(f.key))
			s.editInput.CursorEnd()
			s.editInput.Focus()
			if f.kind == fieldSecret {
				s.editInput.EchoMode = textinput.EchoPassword
			} else {
				s.editInput.EchoMode = textinput.EchoNormal
			}
		}
	case "R":
		m.settings.ResetSection(section)
		m.recomputeDerivedFlags()
		m.reconcileTheme()
		return m.queueSettingsSave()
	}
	return nil
}

// adjustField applies one step of change to a toggle, enum, or slider.
func (m *Model) adjustField(f settingsField, dir int) tea.Cmd {
	switch f.kind {
	case fieldToggle:
		m.settings[f.key] = !m.settings.Bool(f.key)
	case fieldEnum:
		if len(f.options) == 0 {
			return nil
		}
		cur := m.settings.String(f.key)
		idx := 0
		for i, o := range f.options {
			if o == cur {
				idx = i
				break
			}
		}
		idx = (idx + dir + len(f.options)) % len(f.options)
		m.settings[f.key] = f.options[idx]
	case fieldSlider:
		v, _ := strconv.ParseFloat(m.settings.String(f.key), 64)
		v += f.step * float64(dir)
		if v < f.min {
			v = f.min
		}
		if v > f.max {
			v = f.max
		}
		m.settings[f.key] = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil
	}
	m.recomputeDerivedFlags()
	m.reconcileTheme()
	return m.queueSettingsSave()
}

func (m *Model) updateSettingsEditKey(msg tea.KeyMsg) tea.Cmd {
	s := &m.settingsState
	switch msg.String() {
	case "enter":
		value := s.editInput.Value()
		s.editing = false
		s.editInput.Blur()
		if s.creating {
			s.creating = false
			return m.createWorkspaceCmd(strings.TrimSpace(value))
		}
		fields := m.fieldsFor(m.currentSection())
		if s.fieldIdx < len(fields) {
			m.settings[fields[s.fieldIdx].key] = value
		}
		return m.queueSettingsSave()
	}
	var cmd tea.Cmd
	s.editInput, cmd = s.editInput.Update(msg)
	return cmd
}

// =============================================================================
// ITEM MANAGERS
// =============================================================================

func (m *Model) updateItemsKey(section, key string) tea.Cmd {
	s := &m.settingsState
	count := m.itemCount(section)

	switch key {
	case "up", "k":
		if s.itemIdx > 0 {
			s.itemIdx--
		} else {
			s.onItems = false
			s.fieldIdx = len(m.fieldsFor(section)) - 1
		}
		return nil
	case "down", "j":
		if s.itemIdx < count-1 {
			s.itemIdx++
		}
		return nil
	}

	switch section {
	case "Personas":
		switch key {
		case "enter":
			if s.itemIdx < len(m.personas) {
				m.openPersonaEditor(&m.personas[s.itemIdx])
			}
		case "n":
			m.openPersonaEditor(nil)
		case "a":
			if s.itemIdx < len(m.personas) && m.personas[s.itemIdx].AvatarURL != "" {
				m.avatarPreview = m.personas[s.itemIdx].AvatarURL
			}
		case "d":
			if s.itemIdx < len(m.personas) {
				p := m.personas[s.itemIdx]
				s.pendingDeleteID = p.ID
				m.modal.Show(modalDeletePersona, "Delete persona?",
					"\""+p.Name+"\" and its chats will no longer be offered.",
					components.ModalButton{Label: "Delete", Danger: true},
					components.ModalButton{Label: "Cancel"})
			}
		}
	case "Workspaces":
		switch key {
		case "n":
			s.creating = true
			s.editing = true
			s.editInput.SetValue("")
			s.editInput.EchoMode = textinput.EchoNormal
			s.editInput.Placeholder = "Workspace name"
			s.editInput.Focus()
		}
	case "Memory":
		items := m.memoryItemsSorted()
		switch key {
		case "d":
			if s.itemIdx < len(items) {
				s.pendingDeleteID = items[s.itemIdx].ID
				m.modal.Show(modalDeleteMemory, "Forget this?",
					truncateForModal(items[s.itemIdx].Content),
					components.ModalButton{Label: "Forget", Danger: true},
					components.ModalButton{Label: "Keep"})
			}
		}
	}
	return nil
}

func (m *Model) itemCount(section string) int {
	switch section {
	case "Personas":
		return len(m.personas)
	case "Workspaces":
		return len(m.workspaces)
	case "Memory":
		return len(m.memory)
	}
	return 0
}

// memoryItemsSorted returns memory items grouped by tier in precedence
// order, stable within a tier.
func (m *Model) memoryItemsSorted() []model.MemoryItem {
	out := make([]model.MemoryItem, 0, len(m.memory))
	for _, tier := range model.TierOrder {
		for _, item := range m.memory {
			if item.Tier == tier {
				out = append(out, item)
			}
		}
	}
	return out
}

func truncateForModal(s string) string {
	if len(s) > 120 {
		return s[:117] + "…"
	}
	return s
}

func (m *Model) createWorkspaceCmd(name string) tea.Cmd {
	if name == "" {
		return nil
	}
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_, err := client.CreateWorkspace(ctx, name)
		return chatMutatedMsg{Err: err}
	}
}

// applySettingsModalResult handles the delete confirmations raised from the
// item managers.
func (m *Model) applySettingsModalResult(msg components.ModalResultMsg) tea.Cmd {
	s := &m.settingsState
	id := s.pendingDeleteID
	s.pendingDeleteID = ""
	if msg.Choice != 0 || id == "" {
		return nil
	}
	client := m.client
	switch msg.ID {
	case modalDeletePersona:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			return chatMutatedMsg{Err: client.DeletePersona(ctx, id)}
		}
	case modalDeleteMemory:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			return chatMutatedMsg{Err: client.DeleteMemory(ctx, id)}
		}
	}
	return nil
}

// =============================================================================
// PERSONA EDITOR
// =============================================================================

// personaEditorFieldCount is the fixed rows before the workspace toggles:
// name, system prompt, default model, tts voice, avatar, then five trait
// sliders, gender, age.
const personaFixedFields = 12

func (m *Model) openPersonaEditor(p *model.Persona) {
	input := textinput.New()
	input.CharLimit = 0

	edit := &personaEditState{
		input:      input,
		traits:     model.DefaultTraits(),
		workspaces: make(map[string]bool),
	}
	if p != nil {
		edit.id = p.ID
		edit.name = p.Name
		edit.systemPrompt = p.SystemPrompt
		edit.defaultModel = p.DefaultModel
		edit.ttsVoice = p.TTSVoice
		edit.avatarURL = p.AvatarURL
		edit.traits = model.ParseTraits(p.TraitsJSON)
		for _, id := range p.WorkspaceIDs {
			edit.workspaces[id] = true
		}
	} else {
		edit.systemPrompt = m.settings.String("personas_default_system_prompt")
		if def := m.settings.String("workspaces_default_workspace_id"); def != "" {
			edit.workspaces[def] = true
		} else if len(m.workspaces) > 0 {
			edit.workspaces[m.workspaces[0].ID] = true
		}
	}
	m.settingsState.persona = edit
}

func (m *Model) updatePersonaEditKey(msg tea.KeyMsg) tea.Cmd {
	e := m.settingsState.persona
	key := msg.String()

	if e.editing {
		switch key {
		case "enter":
			e.editing = false
			e.input.Blur()
			value := e.input.Value()
			switch e.fieldIdx {
			case 0:
				e.name = value
			case 1:
				e.systemPrompt = value
			case 4:
				e.avatarURL = value
			case 11:
				e.traits.Age = strings.TrimSpace(value)
			}
			return nil
		}
		var cmd tea.Cmd
		e.input, cmd = e.input.Update(msg)
		return cmd
	}

	total := personaFixedFields + len(m.workspaces)
	switch key {
	case "up", "k":
		if e.fieldIdx > 0 {
			e.fieldIdx--
		}
		return nil
	case "down", "j":
		if e.fieldIdx < total-1 {
			e.fieldIdx++
		}
		return nil
	case "ctrl+s":
		return m.savePersonaCmd(e)
	}

	switch {
	case e.fieldIdx == 0 || e.fieldIdx == 1 || e.fieldIdx == 4 || e.fieldIdx == 11:
		// Text rows: name, system prompt, avatar URL, age.
		if key == "enter" {
			e.editing = true
			switch e.fieldIdx {
			case 0:
				e.input.SetValue(e.name)
			case 1:
				e.input.SetValue(e.systemPrompt)
			case 4:
				e.input.SetValue(e.avatarURL)
			case 11:
				e.input.SetValue(e.traits.Age)
			}
			e.input.CursorEnd()
			e.input.Focus()
		}
	case e.fieldIdx == 2:
		e.defaultModel = cycleOption(m.models, e.defaultModel, dirFor(key))
	case e.fieldIdx == 3:
		e.ttsVoice = cycleOption(ttsVoices, e.ttsVoice, dirFor(key))
	case e.fieldIdx >= 5 && e.fieldIdx <= 9:
		slot := traitSlot(&e.traits, e.fieldIdx-5)
		*slot = clampInt(*slot+5*dirFor(key), 0, 100)
	case e.fieldIdx == 10:
		genders := []string{"unspecified", "female", "male", "nonbinary", "other"}
		e.traits.Gender = cycleOption(genders, e.traits.Gender, dirFor(key))
	default:
		// Workspace toggle rows.
		wsIdx := e.fieldIdx - personaFixedFields
		if key == "enter" || key == " " {
			if wsIdx >= 0 && wsIdx < len(m.workspaces) {
				id := m.workspaces[wsIdx].ID
				if e.workspaces[id] && countTrue(e.workspaces) == 1 {
					e.errText = "A persona needs at least one workspace."
					return nil
				}
				e.workspaces[id] = !e.workspaces[id]
				e.errText = ""
			}
		}
	}
	return nil
}

func dirFor(key string) int {
	switch key {
	case "left", "h":
		return -1
	case "right", "l", "enter", " ":
		return +1
	}
	return 0
}

func cycleOption(options []string, current string, dir int) string {
	if dir == 0 || len(options) == 0 {
		return current
	}
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	return options[(idx+dir+len(options))%len(options)]
}

func traitSlot(t *model.Traits, i int) *int {
	switch i {
	case 0:
		return &t.Warmth
	case 1:
		return &t.Creativity
	case 2:
		return &t.Directness
	case 3:
		return &t.Conversational
	default:
		return &t.Casual
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

func (m *Model) savePersonaCmd(e *personaEditState) tea.Cmd {
	name := strings.TrimSpace(e.name)
	if name == "" {
		e.errText = "Name is required."
		return nil
	}
	if countTrue(e.workspaces) == 0 {
		e.errText = "A persona needs at least one workspace."
		return nil
	}

	traitsJSON, err := json.Marshal(e.traits)
	if err != nil {
		e.errText = err.Error()
		return nil
	}
	workspaceIDs := make([]string, 0, len(e.workspaces))
	for _, w := range m.workspaces {
		if e.workspaces[w.ID] {
			workspaceIDs = append(workspaceIDs, w.ID)
		}
	}

	m.settingsState.persona = nil
	client := m.client

	if e.id == "" {
		req := api.CreatePersonaRequest{
			WorkspaceID:  workspaceIDs[0],
			Name:         name,
			AvatarURL:    e.avatarURL,
			SystemPrompt: e.systemPrompt,
			DefaultModel: e.defaultModel,
		}
		extra := map[string]any{
			"traits_json":   string(traitsJSON),
			"tts_voice":     e.ttsVoice,
			"workspace_ids": workspaceIDs,
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			id, err := client.CreatePersona(ctx, req)
			if err == nil {
				err = client.UpdatePersona(ctx, id, extra)
			}
			return chatMutatedMsg{Err: err}
		}
	}

	payload := map[string]any{
		"name":          name,
		"system_prompt": e.systemPrompt,
		"default_model": e.defaultModel,
		"tts_voice":     e.ttsVoice,
		"avatar_url":    e.avatarURL,
		"traits_json":   string(traitsJSON),
		"workspace_ids": workspaceIDs,
	}
	id := e.id
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return chatMutatedMsg{Err: client.UpdatePersona(ctx, id, payload)}
	}
}

// =============================================================================
// DEBOUNCED SAVE
// =============================================================================

// queueSettingsSave schedules a save after the debounce window. Each new
// change bumps the sequence so only the latest scheduled flush runs.
func (m *Model) queueSettingsSave() tea.Cmd {
	m.pendingSaveSeq++
	m.saveQueued = true
	seq := m.pendingSaveSeq
	return tea.Tick(settingsSaveDebounce, func(time.Time) tea.Msg {
		return settingsFlushMsg{Seq: seq}
	})
}

func (m *Model) flushSettingsSave(msg settingsFlushMsg) tea.Cmd {
	if msg.Seq != m.pendingSaveSeq || !m.saveQueued {
		return nil
	}
	m.saveQueued = false

	payload, err := m.settings.Payload()
	if err != nil {
		m.settingsError = err.Error()
		return nil
	}
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return settingsSavedMsg{Err: client.SaveSettings(ctx, payload)}
	}
}

func (m *Model) applySettingsSaved(msg settingsSavedMsg) tea.Cmd {
	if msg.Err != nil {
		m.settingsError = msg.Err.Error()
		return nil
	}
	m.settingsError = ""
	m.settingsToast = "Saved"
	m.diag.Log(api.EventSettingsChange, "settings saved", nil)
	return toastClearCmd()
}

// settingValueLabel renders a field's current value for display.
func (m *Model) settingValueLabel(f settingsField) string {
	switch f.kind {
	case fieldToggle:
		if m.settings.Bool(f.key) {
			return "on"
		}
		return "off"
	case fieldSecret:
		if m.settings.String(f.key) == "" {
			return "(not set)"
		}
		return "••••••••"
	case fieldSlider:
		v, _ := strconv.ParseFloat(m.settings.String(f.key), 64)
		return fmt.Sprintf("%s %g", styles.RenderSlider(16, v, f.min, f.max), v)
	case fieldEnum:
		if f.key == "workspaces_default_workspace_id" {
			if w := m.workspaceByID(m.settings.String(f.key)); w != nil {
				return w.Name
			}
			return "(none)"
		}
		fallthrough
	default:
		v := m.settings.String(f.key)
		if v == "" {
			return "(none)"
		}
		return v
	}
}
