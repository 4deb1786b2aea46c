// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/niceassistant/nice-tui/internal/api"
	"github.com/niceassistant/nice-tui/internal/audio"
	"github.com/niceassistant/nice-tui/internal/ui/components"
	"github.com/niceassistant/nice-tui/internal/ui/styles"
)

// =============================================================================
// VOICE CAPTURE
// =============================================================================

// toggleRecording starts or stops the talk capture. Terminals deliver no
// key-release events, so the browser's hold-to-talk becomes press-to-start
// press-to-stop on the same key.
func (m *Model) toggleRecording() tea.Cmd {
	if m.recorder.State() == audio.StateRecording {
		return m.stopRecording()
	}
	return m.startRecording()
}

// startRecording acquires the capture stream. Recording cannot start while
// a send, synthesis, or transcription is in flight; re-entrant start is a
// no-op inside the recorder itself.
func (m *Model) startRecording() tea.Cmd {
	if !m.cfg.Audio.Enabled {
		m.setUIError("Audio is disabled. Enable it in the config to use voice input.")
		return nil
	}
	if m.isSending || m.isSynthesizing || m.isTranscribing {
		return nil
	}
	m.stopPlayback()

	if err := m.recorder.Start(); err != nil {
		captureErr := audio.ClassifyCaptureError(err)
		m.setUIError(captureErr.UserMessage())
		m.diag.Log(api.EventRecordingStart, "capture failed", map[string]any{
			"code":  captureErr.Code,
			"error": err.Error(),
		})
		return nil
	}

	m.status.Set(components.StatusRecording)
	m.status.SetElapsed(0)
	m.diag.Log(api.EventRecordingStart, "recording", nil)
	return recordTickCmd()
}

// recordTickCmd refreshes the elapsed readout every 250ms while recording.
func recordTickCmd() tea.Cmd {
	return tea.Tick(styles.RecordTickInterval, func(time.Time) tea.Msg {
		return recordTickMsg{}
	})
}

func (m *Model) applyRecordTick() tea.Cmd {
	if m.recorder.State() != audio.StateRecording {
		return nil
	}
	m.status.SetElapsed(m.recorder.Elapsed())
	return recordTickCmd()
}

// stopRecording finalizes the capture and uploads the clip for
// transcription. The recorder's Stop releases the stream on every path.
func (m *Model) stopRecording() tea.Cmd {
	blob, mimeType, err := m.recorder.Stop()
	if err != nil {
		m.status.Set(components.StatusIdle)
		captureErr := audio.ClassifyCaptureError(err)
		m.setUIError(captureErr.UserMessage())
		m.diag.Log(api.EventSTTError, "capture finalize failed", map[string]any{
			"code":  captureErr.Code,
			"error": err.Error(),
		})
		return nil
	}

	m.isTranscribing = true
	m.status.Set(components.StatusTranscribing)

	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		result, err := client.Transcribe(ctx, blob, mimeType)
		return sttResultMsg{Result: result, Err: err}
	}
}

// applySTTResult places recognized text into the composer. An empty but
// successful transcription is logged, not surfaced as an error.
func (m *Model) applySTTResult(msg sttResultMsg) {
	m.isTranscribing = false
	m.status.Set(components.StatusIdle)

	if msg.Err != nil {
		m.setUIError(msg.Err.Error())
		m.diag.Log(api.EventSTTError, "transcription failed", map[string]any{"error": msg.Err.Error()})
		return
	}

	text := strings.TrimSpace(msg.Result.Text)
	if text == "" {
		m.diag.Log(api.EventSTTEmpty, "empty transcription", nil)
		return
	}

	m.diag.Log(api.EventSTTSuccess, "transcribed", map[string]any{"language": msg.Result.Language})
	existing := m.composer.Value()
	if existing != "" && !strings.HasSuffix(existing, " ") {
		existing += " "
	}
	m.composer.SetValue(existing + text)
	m.composer.CursorEnd()
	m.focus = FocusComposer
	m.composer.Focus()
}

// abortRecording discards an in-progress capture without transcribing.
func (m *Model) abortRecording() {
	if m.recorder.State() == audio.StateRecording {
		m.recorder.Abort()
		m.status.Set(components.StatusIdle)
	}
}
