// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
)

// ==============================================================================
// AUTH FORM
// ==============================================================================

// updateAuthKey handles keys while the sign-in form is up. Tab moves
// between the two fields, enter submits, ctrl+s registers a new account
// with the same credentials.
func (m *Model) updateAuthKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.loginUser.Focused() {
			m.loginUser.Blur()
			m.loginPass.Focus()
		} else {
			m.loginPass.Blur()
			m.loginUser.Focus()
		}
		return nil
	case "enter":
		return m.submitLogin(false)
	case "ctrl+s":
		return m.submitLogin(true)
	case "esc":
		m.authError = ""
		return nil
	}

	var cmd tea.Cmd
	if m.loginUser.Focused() {
		m.loginUser, cmd = m.loginUser.Update(msg)
	} else {
		m.loginPass, cmd = m.loginPass.Update(msg)
	}
	return cmd
}

func (m *Model) submitLogin(createAccount bool) tea.Cmd {
	user := strings.TrimSpace(m.loginUser.Value())
	pass := m.loginPass.Value()
	if user == "" || pass == "" {
		m.authError = "Username and password are required."
		return nil
	}
	m.authError = ""
	m.accountToast = ""

	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if createAccount {
			if err := client.CreateUser(ctx, user, pass); err != nil {
				return loginResultMsg{Err: err}
			}
			return loginResultMsg{Created: true}
		}
		if _, err := client.Login(ctx, user, pass); err != nil {
			return loginResultMsg{Err: err}
		}
		return loginResultMsg{}
	}
}

func (m *Model) applyLoginResult(msg loginResultMsg) tea.Cmd {
	if msg.Err != nil {
		m.authError = userAuthError(msg.Err)
		m.diag.Log(api.EventAPIError, m.authError, nil)
		return nil
	}
	if msg.Created {
		m.accountToast = "Account created. Sign in to continue."
		return nil
	}
	// Signed in: clear the password field and load everything.
	m.loginPass.SetValue("")
	m.diag.SetAuthenticated(true)
	return m.refreshCmd()
}

// userAuthError maps transport errors onto form-friendly text.
func userAuthError(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401:
			return "Wrong username or password."
		case 409:
			return "That username is taken."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Could not reach the server. Is it running?"
}
