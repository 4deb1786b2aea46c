// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viz

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource pins every bin to one byte value.
type constSource struct {
	level byte
}

func (s constSource) Frequencies(out []byte) {
	for i := range out {
		out[i] = s.level
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(DefaultConfig(), 256, rand.New(rand.NewSource(7)))
	e.SetVisible(true)
	return e
}

func TestBandPermutationCoversAllBins(t *testing.T) {
	e := New(DefaultConfig(), 128, rand.New(rand.NewSource(1)))
	seen := make(map[int]bool)
	for _, b := range e.bands() {
		require.GreaterOrEqual(t, b, 0)
		require.Less(t, b, 128)
		seen[b] = true
	}
	// 168 dots over 128 bins: every bin appears at least once.
	assert.Len(t, seen, 128)
}

func TestSpringAttacksFasterThanItReleases(t *testing.T) {
	e := newTestEngine(t)

	loud := constSource{level: 255}
	silent := constSource{level: 0}

	e.Step(loud, 16)
	rise := e.amps()[0]
	require.Greater(t, rise, 0.0)

	// Drive to a settled loud state, then cut the signal.
	for i := 0; i < 200; i++ {
		e.Step(loud, 16)
	}
	peak := e.amps()[0]
	e.Step(silent, 16)
	fall := peak - e.amps()[0]

	// One frame of attack from rest moves further toward the target,
	// proportionally, than one frame of release from the peak.
	target := DefaultConfig().MaxOffset
	assert.Greater(t, rise/target, fall/peak)
}

func TestDisplacementClampsAtMaxOffset(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 500; i++ {
		e.Step(constSource{level: 255}, 16)
	}
	max := DefaultConfig().MaxOffset
	for _, amp := range e.amps() {
		// The spring can overshoot transiently but the settled value
		// must respect the clamp with a small tolerance.
		assert.LessOrEqual(t, amp, max*1.05)
	}
	assert.Greater(t, e.Energy(), 0.9)
}

func TestHiddenEngineKeepsSpringState(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 50; i++ {
		e.Step(constSource{level: 200}, 16)
	}
	before := e.amps()
	require.Greater(t, before[0], 0.0)

	e.SetVisible(false)
	for i := 0; i < 50; i++ {
		e.Step(constSource{level: 0}, 16)
	}
	assert.Equal(t, before, e.amps(), "hidden frames must not advance springs")
	assert.Empty(t, e.Render(80, 24))

	e.SetVisible(true)
	assert.Equal(t, before, e.amps())
}

func TestRenderProducesHalfBlockRows(t *testing.T) {
	e := newTestEngine(t)
	e.Step(constSource{level: 128}, 16)

	frame := e.Render(40, 12)
	require.NotEmpty(t, frame)
	lines := strings.Split(frame, "\n")
	assert.Len(t, lines, 12)
	for _, line := range lines {
		assert.Equal(t, 40, strings.Count(line, "▀"))
		assert.True(t, strings.HasSuffix(line, "\x1b[0m"))
	}
}

func TestRenderTinyViewportIsEmpty(t *testing.T) {
	e := newTestEngine(t)
	e.Step(constSource{level: 128}, 16)
	assert.Empty(t, e.Render(1, 1))
	assert.Empty(t, e.Render(0, 10))
}

func TestCanvasAdditiveClamp(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Add(1, 1, RGB{200, 200, 200})
	c.Add(1, 1, RGB{100, 100, 100})
	assert.Equal(t, RGB{255, 255, 255}, c.pix[1*c.W+1])

	// Out-of-bounds draws are dropped, not wrapped.
	c.Add(-1, 0, RGB{255, 0, 0})
	c.Add(4, 0, RGB{255, 0, 0})
	assert.Equal(t, RGB{}, c.pix[0])
	assert.Equal(t, RGB{}, c.pix[3])
}
