// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package viz renders the audio-reactive visualization: a ring of dots
// driven by per-band spring physics around a pulsing orb, over a twinkling
// star field. The engine runs on its own frame clock, decoupled from the
// application render cycle, and skips all drawing while hidden without
// resetting spring state.
package viz

import (
	"math"
	"math/rand"
	"sync"
)

// =============================================================================
// TUNING
// =============================================================================

// Config holds the visualization tuning constants.
type Config struct {
	// N is the number of ring dots.
	N int
	// BandWidth is how many adjacent frequency bins average into one dot.
	BandWidth int
	// MaxOffset clamps a dot's displacement, in logical pixels.
	MaxOffset float64
	// Attack applies when the target displacement exceeds the current one,
	// Release otherwise. Spring scales both; Damping bleeds velocity.
	Attack  float64
	Release float64
	Spring  float64
	Damping float64
	// RingR and PulseR are the base ring and orb radii in logical pixels.
	RingR  float64
	PulseR float64
	// StarCount sizes the background star field.
	StarCount int
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		N:         168,
		BandWidth: 2,
		MaxOffset: 190,
		Attack:    0.38,
		Release:   0.11,
		Spring:    0.14,
		Damping:   0.8,
		RingR:     170,
		PulseR:    84,
		StarCount: 140,
	}
}

// Source supplies byte-normalized frequency bins, typically the playback
// analyser.
type Source interface {
	Frequencies(out []byte)
}

// =============================================================================
// ENGINE
// =============================================================================

// dot is one ring element: an assigned frequency band plus an independent
// critically-damped spring state.
type dot struct {
	band int
	amp  float64
	vel  float64
}

type star struct {
	x, y    float64 // 0..1, scaled to the viewport each frame
	z       float64 // depth, scales size and brightness
	twinkle float64
	speed   float64
}

// Engine owns the dot springs, star field, and frame clock.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	dots    []dot
	stars   []star
	freq    []byte
	energy  float64
	timeMs  float64
	visible bool
}

// New creates an engine for binCount frequency bins. Each dot gets a band
// from a randomized permutation fixed at init, so neighbors on the ring
// react to unrelated parts of the spectrum.
func New(cfg Config, binCount int, rng *rand.Rand) *Engine {
	if binCount < 1 {
		binCount = 1
	}
	bands := rng.Perm(binCount)
	dots := make([]dot, cfg.N)
	for i := range dots {
		dots[i] = dot{band: bands[i%len(bands)]}
	}

	stars := make([]star, cfg.StarCount)
	for i := range stars {
		stars[i] = star{
			x:       rng.Float64(),
			y:       rng.Float64(),
			z:       0.15 + rng.Float64()*0.85,
			twinkle: rng.Float64() * math.Pi * 2,
			speed:   0.002 + rng.Float64()*0.004,
		}
	}

	return &Engine{
		cfg:   cfg,
		dots:  dots,
		stars: stars,
		freq:  make([]byte, binCount),
	}
}

// SetVisible flips the visibility flag. Hiding does not reset spring
// state: toggling back on resumes wherever the springs were left.
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = visible
}

// Visible reports the current visibility flag.
func (e *Engine) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}

// Step advances the frame clock and, while visible, samples the source and
// integrates every spring. The caller reschedules the next frame
// unconditionally; Step itself skips all work when hidden.
func (e *Engine) Step(src Source, dtMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timeMs += dtMs
	if !e.visible {
		return
	}

	if src != nil {
		src.Frequencies(e.freq)
	}

	// Overall energy is the mean normalized magnitude across all bins.
	total := 0.0
	for _, v := range e.freq {
		total += float64(v) / 255
	}
	e.energy = total / math.Max(1, float64(len(e.freq)))

	for i := range e.dots {
		d := &e.dots[i]
		raw := e.bandSample(d.band)
		target := math.Min(e.cfg.MaxOffset, raw*(e.cfg.MaxOffset+e.energy*65))

		k := e.cfg.Release
		if target > d.amp {
			k = e.cfg.Attack
		}
		d.vel += (target - d.amp) * k * e.cfg.Spring
		d.vel *= e.cfg.Damping
		d.amp += d.vel
	}

	for i := range e.stars {
		s := &e.stars[i]
		s.twinkle += s.speed
		if s.twinkle > math.Pi*2 {
			s.twinkle -= math.Pi * 2
		}
	}
}

// bandSample averages BandWidth bins starting at band, normalized to 0..1.
func (e *Engine) bandSample(band int) float64 {
	raw := 0.0
	for b := 0; b < e.cfg.BandWidth; b++ {
		raw += float64(e.freq[(band+b)%len(e.freq)]) / 255
	}
	return raw / float64(e.cfg.BandWidth)
}

// Energy returns the last computed overall energy.
func (e *Engine) Energy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy
}

// amps returns a copy of the current dot displacements, for tests.
func (e *Engine) amps() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, len(e.dots))
	for i, d := range e.dots {
		out[i] = d.amp
	}
	return out
}

// bands returns the band assignment, for tests.
func (e *Engine) bands() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, len(e.dots))
	for i, d := range e.dots {
		out[i] = d.band
	}
	return out
}

// =============================================================================
// RENDER
// =============================================================================

// Render draws the current frame onto a half-block canvas sized to the
// cell grid. Physics coordinates stay in logical pixels; resizing only
// changes the canvas the frame lands on. Returns "" while hidden.
func (e *Engine) Render(cols, rows int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.visible || cols < 2 || rows < 2 {
		return ""
	}

	canvas := NewCanvas(cols, rows)
	w := float64(canvas.W)
	h := float64(canvas.H)

	// Background deepens slightly with energy.
	bgBoost := e.energy * 26
	canvas.Fill(RGB{uint8(2 + bgBoost/4), uint8(8 + bgBoost/3), uint8(20 + bgBoost)})

	for _, s := range e.stars {
		alpha := (0.15 + math.Sin(s.twinkle+e.timeMs*0.0012)*0.12 + e.energy*0.35) * s.z
		alpha = math.Max(0.02, alpha)
		canvas.FillCircle(s.x*w, s.y*h, 0.4+s.z*1.4, scale(RGB{140, 255, 245}, alpha))
	}

	cx := w / 2
	cy := h / 2
	baseR := math.Min(w, h) * 0.23
	ringR := math.Max(e.cfg.RingR*0.58, math.Min(baseR, e.cfg.RingR))
	scaleR := ringR / e.cfg.RingR

	// Orb core with a soft pulse.
	orbR := math.Max(e.cfg.PulseR*scaleR, ringR*0.45)
	pulse := 1 + math.Sin(e.timeMs*0.003)*0.02 + e.energy*0.16
	canvas.FillCircleFalloff(cx, cy, orbR*pulse, scale(RGB{166, 252, 255}, 0.26+e.energy*0.2))

	for i := range e.dots {
		d := &e.dots[i]
		angle := float64(i)/float64(len(e.dots))*math.Pi*2 + e.timeMs*0.00012
		raw := e.bandSample(d.band)

		drift := math.Sin(e.timeMs*0.0015+float64(i)*0.3) * 9 * scaleR
		r := ringR + d.amp*scaleR + drift
		x := cx + math.Cos(angle)*r
		y := cy + math.Sin(angle)*r

		canvas.FillCircle(x, y, (0.7+raw*1.7)*scaleR+0.4, scale(RGB{95, 247, 255}, 0.1+raw*0.5))
		canvas.Add(int(x), int(y), scale(RGB{180, 132, 255}, 0.45+raw*0.45))
	}

	ringAlpha := 0.12 + e.energy*0.35
	canvas.StrokeCircle(cx, cy, ringR*(1.05+math.Sin(e.timeMs*0.0024)*0.012), scale(RGB{114, 248, 255}, ringAlpha))

	return canvas.String()
}

func scale(c RGB, alpha float64) RGB {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return RGB{
		uint8(float64(c.R) * alpha),
		uint8(float64(c.G) * alpha),
		uint8(float64(c.B) * alpha),
	}
}
