// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// FAILURE TAXONOMY
// =============================================================================

// Sentinel errors for capture failures.
var (
	ErrNoDevice    = errors.New("no input device found")
	ErrBusy        = errors.New("input device busy")
	ErrPermission  = errors.New("microphone access denied")
	ErrUnsupported = errors.New("audio capture not supported")
	ErrOpenFailed  = errors.New("could not open recorder")
	ErrEmptyClip   = errors.New("recording is empty")
)

// FailCode is the machine-readable code attached to diagnostic events for a
// capture failure.
type FailCode string

const (
	FailPermission  FailCode = "permission_denied"
	FailNoDevice    FailCode = "no_device"
	FailBusy        FailCode = "device_busy"
	FailUnsupported FailCode = "unsupported"
	FailEmptyClip   FailCode = "empty_clip"
	FailOpenStream  FailCode = "recorder_error"
)

// CaptureError pairs a distinguished failure code with the underlying
// error, which is retained for diagnostics.
type CaptureError struct {
	Code FailCode
	Err  error
}

func (e *CaptureError) Error() string {
	return e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// UserMessage returns the user-facing text for this failure.
func (e *CaptureError) UserMessage() string {
	switch e.Code {
	case FailPermission:
		return "Microphone permission denied. Enable it to use voice input."
	case FailNoDevice:
		return "No microphone found."
	case FailBusy:
		return "Microphone busy or unreadable."
	case FailUnsupported:
		return "Audio capture is not supported on this system."
	case FailEmptyClip:
		return "Nothing was recorded. Try holding the key a little longer."
	default:
		return "Could not start the recorder."
	}
}

// ClassifyCaptureError maps an open/start failure onto a distinguished
// code. Sentinels map directly; otherwise the error text is matched.
func ClassifyCaptureError(err error) *CaptureError {
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		return capErr
	}
	switch {
	case errors.Is(err, ErrNoDevice):
		return &CaptureError{Code: FailNoDevice, Err: err}
	case errors.Is(err, ErrBusy):
		return &CaptureError{Code: FailBusy, Err: err}
	case errors.Is(err, ErrPermission):
		return &CaptureError{Code: FailPermission, Err: err}
	case errors.Is(err, ErrUnsupported):
		return &CaptureError{Code: FailUnsupported, Err: err}
	case errors.Is(err, ErrEmptyClip):
		return &CaptureError{Code: FailEmptyClip, Err: err}
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "permission") || strings.Contains(text, "denied"):
		return &CaptureError{Code: FailPermission, Err: err}
	case strings.Contains(text, "no device") || strings.Contains(text, "no input"):
		return &CaptureError{Code: FailNoDevice, Err: err}
	case strings.Contains(text, "busy") || strings.Contains(text, "in use"):
		return &CaptureError{Code: FailBusy, Err: err}
	case strings.Contains(text, "not supported") || strings.Contains(text, "unsupported") || strings.Contains(text, "invalid host api"):
		return &CaptureError{Code: FailUnsupported, Err: err}
	default:
		return &CaptureError{Code: FailOpenStream, Err: err}
	}
}

// =============================================================================
// RECORDER STATE MACHINE
// =============================================================================

// State is the recorder lifecycle state: Idle -> Recording -> (stop) ->
// Transcribing -> Idle. The Transcribing phase is driven by the caller
// after Stop returns the blob.
type State int

const (
	StateIdle State = iota
	StateRecording
)

// Recorder captures microphone audio into 16-bit PCM chunks and assembles
// them into a WAV blob on stop.
type Recorder struct {
	engine      *Engine
	deviceHint  string
	sampleRates []int

	mu      sync.Mutex
	state   State
	stream  Stream
	format  CaptureFormat
	samples []int16
	started time.Time
}

// NewRecorder creates an idle recorder. deviceHint and sampleRates come
// from the audio config.
func NewRecorder(engine *Engine, deviceHint string, sampleRates []int) *Recorder {
	return &Recorder{
		engine:      engine,
		deviceHint:  deviceHint,
		sampleRates: sampleRates,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns how long the current recording has been running; zero
// when idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return 0
	}
	return time.Since(r.started)
}

// Start acquires the microphone and begins accumulating chunks. A start
// while already recording is a no-op. Failures carry a distinguished
// *CaptureError.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.engine.EnsureGraph(); err != nil {
		return ClassifyCaptureError(err)
	}

	stream, format, err := r.engine.Backend().OpenCapture(r.deviceHint, r.sampleRates, r.append)
	if err != nil {
		return ClassifyCaptureError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return ClassifyCaptureError(err)
	}

	r.mu.Lock()
	r.state = StateRecording
	r.stream = stream
	r.format = format
	r.samples = nil
	r.started = time.Now()
	r.mu.Unlock()
	return nil
}

func (r *Recorder) append(chunk []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.samples = append(r.samples, chunk...)
}

// Stop halts capture and assembles the accumulated chunks into a WAV blob
// tagged with the negotiated format. The stream is released and recorder
// state reset on every path, including errors and empty clips.
func (r *Recorder) Stop() (blob []byte, mimeType string, err error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, "", ErrEmptyClip
	}
	stream := r.stream
	r.mu.Unlock()

	stopErr := stream.Stop()

	// Single finalization step: release the stream and reset state no
	// matter how capture ended.
	r.mu.Lock()
	samples := r.samples
	format := r.format
	r.samples = nil
	r.stream = nil
	r.state = StateIdle
	r.mu.Unlock()
	stream.Close()

	if stopErr != nil {
		return nil, "", ClassifyCaptureError(stopErr)
	}
	if len(samples) == 0 {
		return nil, "", ErrEmptyClip
	}
	return EncodeWAV(samples, format.SampleRate, format.Channels), format.MimeType(), nil
}

// Abort discards an in-progress recording, releasing the stream.
func (r *Recorder) Abort() {
	r.mu.Lock()
	stream := r.stream
	r.samples = nil
	r.stream = nil
	r.state = StateIdle
	r.mu.Unlock()
	if stream != nil {
		stream.Stop()
		stream.Close()
	}
}
