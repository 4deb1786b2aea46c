// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/niceassistant/nice-tui/internal/api"
)

// =============================================================================
// FIRST-RUN WIZARD
// =============================================================================

// Wizard steps in order: workspace name, persona name, system prompt.
const (
	onboardStepWorkspace = iota
	onboardStepPersona
	onboardStepPrompt
)

// onboardingState drives the three-step first-run wizard. Each step
// pre-fills a sensible default so enter-enter-enter finishes setup.
type onboardingState struct {
	step      int
	input     textinput.Model
	workspace string
	persona   string
	prompt    string
	busy      bool
	errText   string
}

// startOnboarding opens the wizard with defaults filled in.
func (m *Model) startOnboarding() tea.Cmd {
	input := textinput.New()
	input.CharLimit = 0
	input.SetValue("Main Workspace")
	input.CursorEnd()
	input.Focus()
	m.onboarding = &onboardingState{
		step:      onboardStepWorkspace,
		input:     input,
		workspace: "Main Workspace",
		persona:   "Assistant",
		prompt:    m.settings.String("personas_default_system_prompt"),
	}
	return nil
}

func (m *Model) updateOnboardingKey(msg tea.KeyMsg) tea.Cmd {
	o := m.onboarding
	if o.busy {
		return nil
	}

	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(o.input.Value())
		if value == "" {
			o.errText = "This can't be empty."
			return nil
		}
		o.errText = ""
		switch o.step {
		case onboardStepWorkspace:
			o.workspace = value
			o.step = onboardStepPersona
			o.input.SetValue(o.persona)
			o.input.CursorEnd()
		case onboardStepPersona:
			o.persona = value
			o.step = onboardStepPrompt
			o.input.SetValue(o.prompt)
			o.input.CursorEnd()
		case onboardStepPrompt:
			o.prompt = value
			o.busy = true
			return m.finishOnboardingCmd(o.workspace, o.persona, o.prompt)
		}
		return nil
	}

	var cmd tea.Cmd
	o.input, cmd = o.input.Update(msg)
	return cmd
}

// finishOnboardingCmd creates the workspace and persona, marks onboarding
// done server-side, and reloads everything.
func (m *Model) finishOnboardingCmd(workspace, persona, prompt string) tea.Cmd {
	m.settings["onboarding_done"] = 1
	payload, err := m.settings.Payload()
	if err != nil {
		m.onboarding.busy = false
		m.onboarding.errText = err.Error()
		return nil
	}
	m.onboarding = nil

	client := m.client
	defaultModel := m.settings.String("global_default_model")
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		wsID, err := client.CreateWorkspace(ctx, workspace)
		if err != nil {
			return chatMutatedMsg{Err: err}
		}
		_, err = client.CreatePersona(ctx, api.CreatePersonaRequest{
			WorkspaceID:  wsID,
			Name:         persona,
			SystemPrompt: prompt,
			DefaultModel: defaultModel,
		})
		if err != nil {
			return chatMutatedMsg{Err: err}
		}
		if err := client.SaveSettings(ctx, payload); err != nil {
			return chatMutatedMsg{Err: err}
		}
		return chatMutatedMsg{}
	}
}

func (m *Model) viewOnboarding() string {
	o := m.onboarding
	var b strings.Builder

	b.WriteString(m.theme.ModalTitle.Render("Welcome to Nice Assistant"))
	b.WriteString("\n\n")

	labels := []string{
		"Name your first workspace:",
		"Name your assistant:",
		"How should it behave?",
	}
	b.WriteString(m.theme.ModalBody.Render(labels[o.step]))
	b.WriteString("\n\n")
	b.WriteString(o.input.View())
	b.WriteString("\n\n")
	if o.errText != "" {
		b.WriteString(m.theme.Error.Render(o.errText))
		b.WriteString("\n")
	}
	if o.busy {
		b.WriteString(m.theme.Muted.Render("Setting things up…"))
	} else {
		b.WriteString(m.theme.Muted.Render("enter continue"))
	}

	card := m.theme.ModalCard.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}
