// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// STATUS PILL
// =============================================================================

// Status is the single activity state shown in the pill. Only one state is
// active at a time; a new activity replaces the previous one.
type Status int

const (
	StatusIdle Status = iota
	StatusThinking
	StatusTranscribing
	StatusSpeaking
	StatusRecording
	StatusGeneratingImage
	StatusError
)

// StatusPill renders the current activity with its spinner frame.
type StatusPill struct {
	status  Status
	errText string
	tick    int
	elapsed time.Duration // recording elapsed, shown while StatusRecording

	theme *styles.Theme
}

// NewStatusPill creates an idle pill.
func NewStatusPill(theme *styles.Theme) *StatusPill {
	return &StatusPill{theme: theme}
}

// Set replaces the current status. Leaving the error state clears the
// error text.
func (s *StatusPill) Set(status Status) {
	s.status = status
	if status != StatusError {
		s.errText = ""
	}
}

// SetError switches to the error state with a user-facing message.
func (s *StatusPill) SetError(text string) {
	s.status = StatusError
	s.errText = text
}

// Status returns the current state.
func (s *StatusPill) Status() Status {
	return s.status
}

// Busy reports whether an operation is in flight.
func (s *StatusPill) Busy() bool {
	switch s.status {
	case StatusThinking, StatusTranscribing, StatusGeneratingImage:
		return true
	}
	return false
}

// Tick advances the spinner.
func (s *StatusPill) Tick() {
	s.tick++
}

// SetElapsed updates the recording duration readout.
func (s *StatusPill) SetElapsed(d time.Duration) {
	s.elapsed = d
}

// SetTheme swaps the theme on palette change.
func (s *StatusPill) SetTheme(theme *styles.Theme) {
	s.theme = theme
}

// View renders the pill, "" when idle.
func (s *StatusPill) View() string {
	switch s.status {
	case StatusThinking:
		return s.theme.StatusBusy.Render("Thinking" + styles.ThinkingSpinner.Frame(s.tick))
	case StatusTranscribing:
		return s.theme.StatusBusy.Render(styles.LineSpinner.Frame(s.tick) + " Transcribing")
	case StatusSpeaking:
		return s.theme.StatusSpeech.Render(styles.SpeakingSpinner.Frame(s.tick) + " Speaking")
	case StatusRecording:
		secs := int(s.elapsed.Seconds())
		return s.theme.RecordActive.Render(fmt.Sprintf("%s REC %d:%02d",
			styles.RecordingPulse.Frame(s.tick), secs/60, secs%60))
	case StatusGeneratingImage:
		return s.theme.StatusBusy.Render(styles.LineSpinner.Frame(s.tick) + " Generating image")
	case StatusError:
		return s.theme.StatusError.Render("! " + s.errText)
	}
	return ""
}
