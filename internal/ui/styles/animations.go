// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"
)

// =============================================================================
// SPINNERS
// =============================================================================

// SpinnerConfig holds the frames and rate of one spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration of each frame.
func (s SpinnerConfig) Duration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// Frame returns the frame for a zero-based tick counter.
func (s SpinnerConfig) Frame(tick int) string {
	if len(s.Frames) == 0 {
		return ""
	}
	return s.Frames[tick%len(s.Frames)]
}

// ThinkingSpinner animates the status pill while a chat turn is pending.
var ThinkingSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// RecordingPulse animates the hold-to-talk indicator.
var RecordingPulse = SpinnerConfig{
	Frames: []string{"( )", "(.)", "(o)", "(O)", "(o)", "(.)"},
	FPS:    8,
}

// SpeakingSpinner animates the status pill during TTS playback.
var SpeakingSpinner = SpinnerConfig{
	Frames: []string{"▁", "▃", "▅", "▇", "▅", "▃"},
	FPS:    10,
}

// LineSpinner is the generic busy indicator (transcribing, refreshing).
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// =============================================================================
// SLIDER / PROGRESS RENDERING
// =============================================================================

// Slider bar characters; sliders show persona trait values and the session
// countdown in settings.
var (
	SliderFullChar  = "█"
	SliderEmptyChar = "░"
)

// RenderSlider renders a horizontal bar for value within [min, max].
func RenderSlider(width int, value, min, max float64) string {
	if width <= 0 || max <= min {
		return ""
	}
	frac := (value - min) / (max - min)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac*float64(width) + 0.5)

	var sb strings.Builder
	sb.Grow(width * 3)
	for i := 0; i < width; i++ {
		if i < filled {
			sb.WriteString(SliderFullChar)
		} else {
			sb.WriteString(SliderEmptyChar)
		}
	}
	return sb.String()
}

// =============================================================================
// TIMING
// =============================================================================

// VizFrameInterval is the visualization frame period (~30fps keeps cell
// redraw cost bounded on slow terminals).
var VizFrameInterval = 33 * time.Millisecond

// RecordTickInterval drives the elapsed-time readout while recording.
var RecordTickInterval = 250 * time.Millisecond
