// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audio coordinates microphone capture, WAV assembly, TTS playback,
// and spectrum analysis on top of PortAudio.
//
// The Engine owns the audio graph lifecycle: initialization is lazy and
// idempotent, happening at most once per process on first use, and every
// acquired stream must be released on all exit paths so the OS device lock
// is never leaked.
package audio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// =============================================================================
// BACKEND ABSTRACTION
// =============================================================================

// Stream is one open capture or playback stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// CaptureFormat is the negotiated recording format.
type CaptureFormat struct {
	SampleRate int
	Channels   int
}

// MimeType returns the blob mime type for an assembled recording.
func (f CaptureFormat) MimeType() string {
	return "audio/wav"
}

// Backend abstracts the PortAudio entry points the engine uses, so tests
// can substitute a fake without audio hardware.
type Backend interface {
	Initialize() error
	Terminate() error

	// OpenCapture negotiates a capture stream: deviceHint selects an input
	// device by name substring (empty means default), sampleRates are
	// probed in priority order. onSamples receives interleaved 16-bit PCM.
	OpenCapture(deviceHint string, sampleRates []int, onSamples func([]int16)) (Stream, CaptureFormat, error)

	// OpenPlayback opens an output stream. fill writes the next buffer and
	// returns false when playback is complete.
	OpenPlayback(sampleRate, channels int, fill func(out []int16) bool) (Stream, error)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns lazy one-time backend initialization and constructs the
// recorder/player/analyser graph.
type Engine struct {
	backend Backend

	mu          sync.Mutex
	initialized bool
	initErr     error
}

// NewEngine creates an engine over the real PortAudio backend.
func NewEngine() *Engine {
	return &Engine{backend: &portaudioBackend{}}
}

// NewEngineWithBackend creates an engine over a custom backend. Used by
// tests and the doctor command.
func NewEngineWithBackend(b Backend) *Engine {
	return &Engine{backend: b}
}

// EnsureGraph initializes the backend on first call and reuses the result
// thereafter. A failed init is sticky for the process, matching the
// at-most-once graph construction contract.
func (e *Engine) EnsureGraph() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return e.initErr
	}
	e.initialized = true
	e.initErr = e.backend.Initialize()
	if e.initErr != nil {
		e.initErr = fmt.Errorf("audio init failed: %w", e.initErr)
	}
	return e.initErr
}

// Close releases the backend. Safe to call without prior init.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized || e.initErr != nil {
		return nil
	}
	e.initialized = false
	return e.backend.Terminate()
}

// Backend exposes the underlying backend for stream construction.
func (e *Engine) Backend() Backend {
	return e.backend
}

// =============================================================================
// PORTAUDIO BACKEND
// =============================================================================

type portaudioBackend struct{}

func (portaudioBackend) Initialize() error {
	return portaudio.Initialize()
}

func (portaudioBackend) Terminate() error {
	return portaudio.Terminate()
}

func (portaudioBackend) OpenCapture(deviceHint string, sampleRates []int, onSamples func([]int16)) (Stream, CaptureFormat, error) {
	dev, err := findInputDevice(deviceHint)
	if err != nil {
		return nil, CaptureFormat{}, err
	}

	channels := 1
	if dev.MaxInputChannels < 1 {
		return nil, CaptureFormat{}, ErrNoDevice
	}

	// Probe sample rates in priority order; first open that succeeds wins.
	rates := append([]int(nil), sampleRates...)
	if dev.DefaultSampleRate > 0 {
		rates = append([]int{int(dev.DefaultSampleRate)}, rates...)
	}
	var lastErr error
	for _, rate := range rates {
		params := portaudio.HighLatencyParameters(dev, nil)
		params.SampleRate = float64(rate)
		params.Input.Channels = channels
		params.FramesPerBuffer = 1024

		stream, err := portaudio.OpenStream(params, func(in []int16) {
			buf := make([]int16, len(in))
			copy(buf, in)
			onSamples(buf)
		})
		if err != nil {
			lastErr = err
			continue
		}
		return stream, CaptureFormat{SampleRate: rate, Channels: channels}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no usable capture format")
	}
	return nil, CaptureFormat{}, lastErr
}

func (portaudioBackend) OpenPlayback(sampleRate, channels int, fill func(out []int16) bool) (Stream, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil || dev == nil {
		return nil, ErrNoDevice
	}
	params := portaudio.HighLatencyParameters(nil, dev)
	params.SampleRate = float64(sampleRate)
	params.Output.Channels = channels
	params.FramesPerBuffer = 1024

	return portaudio.OpenStream(params, func(out []int16) {
		if !fill(out) {
			for i := range out {
				out[i] = 0
			}
		}
	})
}

func findInputDevice(hint string) (*portaudio.DeviceInfo, error) {
	if hint != "" {
		devices, err := portaudio.Devices()
		if err == nil {
			lowered := strings.ToLower(hint)
			for _, d := range devices {
				if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), lowered) {
					return d, nil
				}
			}
		}
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, ErrNoDevice
	}
	return dev, nil
}
