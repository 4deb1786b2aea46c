// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"fmt"
	"sync"
)

// =============================================================================
// PLAYBACK
// =============================================================================

// Player plays decoded TTS clips through the output device, feeding every
// rendered buffer into the shared analyser for the visualization. Only one
// clip plays at a time; starting a new clip stops the previous one.
type Player struct {
	engine   *Engine
	analyser *Analyser

	mu      sync.Mutex
	stream  Stream
	clip    *Clip
	pos     int
	playing bool
	onDone  func()
}

// NewPlayer creates a player wired to the shared analyser.
func NewPlayer(engine *Engine, analyser *Analyser) *Player {
	return &Player{engine: engine, analyser: analyser}
}

// Playing reports whether a clip is currently audible.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Play starts a clip. onDone fires once, from the playback goroutine, when
// the clip finishes naturally; Stop suppresses it.
func (p *Player) Play(clip *Clip, onDone func()) error {
	if err := p.engine.EnsureGraph(); err != nil {
		return err
	}
	p.Stop()

	p.mu.Lock()
	p.clip = clip
	p.pos = 0
	p.playing = true
	p.onDone = onDone
	p.mu.Unlock()

	stream, err := p.engine.Backend().OpenPlayback(clip.SampleRate, clip.Channels, p.fill)
	if err != nil {
		p.reset(false)
		return fmt.Errorf("could not open playback: %w", err)
	}

	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()

	if err := stream.Start(); err != nil {
		p.reset(false)
		stream.Close()
		return fmt.Errorf("could not start playback: %w", err)
	}
	p.analyser.SetActive(true)
	return nil
}

// fill renders the next output buffer. Returns false once the clip is
// exhausted, which also schedules completion.
func (p *Player) fill(out []int16) bool {
	p.mu.Lock()
	if !p.playing || p.clip == nil {
		p.mu.Unlock()
		return false
	}
	n := copy(out, p.clip.Samples[p.pos:])
	p.pos += n
	done := p.pos >= len(p.clip.Samples)
	p.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	p.analyser.Push(out[:n])

	if done {
		// Completion must not block the audio callback.
		go p.finish()
		return false
	}
	return true
}

// finish tears down after natural end-of-clip.
func (p *Player) finish() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	stream := p.stream
	onDone := p.onDone
	p.stream = nil
	p.clip = nil
	p.playing = false
	p.onDone = nil
	p.mu.Unlock()

	if stream != nil {
		stream.Stop()
		stream.Close()
	}
	p.analyser.SetActive(false)
	if onDone != nil {
		onDone()
	}
}

// Stop halts playback immediately without firing the completion callback.
// Safe to call when idle.
func (p *Player) Stop() {
	p.reset(true)
}

func (p *Player) reset(releaseStream bool) {
	p.mu.Lock()
	stream := p.stream
	p.stream = nil
	p.clip = nil
	p.playing = false
	p.onDone = nil
	p.mu.Unlock()

	if releaseStream && stream != nil {
		stream.Stop()
		stream.Close()
	}
	p.analyser.SetActive(false)
}
