// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeStream struct {
	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool

	startErr error
	stopErr  error
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.stopErr
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeBackend struct {
	mu         sync.Mutex
	initCalls  int
	initErr    error
	captureErr error

	capture   *fakeStream
	onSamples func([]int16)

	playback *fakeStream
	fill     func([]int16) bool
}

func (b *fakeBackend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initCalls++
	return b.initErr
}

func (b *fakeBackend) Terminate() error { return nil }

func (b *fakeBackend) OpenCapture(hint string, rates []int, onSamples func([]int16)) (Stream, CaptureFormat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.captureErr != nil {
		return nil, CaptureFormat{}, b.captureErr
	}
	b.capture = &fakeStream{}
	b.onSamples = onSamples
	return b.capture, CaptureFormat{SampleRate: 16000, Channels: 1}, nil
}

func (b *fakeBackend) OpenPlayback(sampleRate, channels int, fill func([]int16) bool) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playback = &fakeStream{}
	b.fill = fill
	return b.playback, nil
}

func (b *fakeBackend) feed(samples []int16) {
	b.mu.Lock()
	cb := b.onSamples
	b.mu.Unlock()
	cb(samples)
}

func newFakeEngine() (*Engine, *fakeBackend) {
	backend := &fakeBackend{}
	return NewEngineWithBackend(backend), backend
}

// =============================================================================
// ENGINE TESTS
// =============================================================================

// TestEngine_LazyIdempotentInit verifies the graph is constructed at most
// once and a failed init is sticky.
func TestEngine_LazyIdempotentInit(t *testing.T) {
	engine, backend := newFakeEngine()
	require.NoError(t, engine.EnsureGraph())
	require.NoError(t, engine.EnsureGraph())
	assert.Equal(t, 1, backend.initCalls)

	failing := &fakeBackend{initErr: errors.New("no host api")}
	engine2 := NewEngineWithBackend(failing)
	require.Error(t, engine2.EnsureGraph())
	require.Error(t, engine2.EnsureGraph())
	assert.Equal(t, 1, failing.initCalls)
}

// =============================================================================
// RECORDER TESTS
// =============================================================================

// TestRecorder_SuccessPathReleasesStream verifies stop assembles a WAV blob
// and releases the stream.
func TestRecorder_SuccessPathReleasesStream(t *testing.T) {
	engine, backend := newFakeEngine()
	rec := NewRecorder(engine, "", []int{16000})

	require.NoError(t, rec.Start())
	assert.Equal(t, StateRecording, rec.State())
	backend.feed([]int16{100, -100, 200, -200})

	blob, mime, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", mime)
	assert.True(t, backend.capture.isClosed(), "stream must be released")
	assert.Equal(t, StateIdle, rec.State())

	clip, err := DecodeWAV(blob)
	require.NoError(t, err)
	assert.Equal(t, []int16{100, -100, 200, -200}, clip.Samples)
	assert.Equal(t, 16000, clip.SampleRate)
}

// TestRecorder_EmptyClipStillFinalizes verifies the empty-blob client-side
// error path also releases the stream and resets state.
func TestRecorder_EmptyClipStillFinalizes(t *testing.T) {
	engine, backend := newFakeEngine()
	rec := NewRecorder(engine, "", []int{16000})

	require.NoError(t, rec.Start())
	_, _, err := rec.Stop()
	require.ErrorIs(t, err, ErrEmptyClip)
	assert.True(t, backend.capture.isClosed())
	assert.Equal(t, StateIdle, rec.State())
}

// TestRecorder_StopFailureStillFinalizes verifies a failing stop still
// releases the stream and resets state.
func TestRecorder_StopFailureStillFinalizes(t *testing.T) {
	engine, backend := newFakeEngine()
	rec := NewRecorder(engine, "", []int{16000})

	require.NoError(t, rec.Start())
	backend.capture.stopErr = errors.New("device unplugged")
	_, _, err := rec.Stop()
	require.Error(t, err)
	assert.True(t, backend.capture.isClosed())
	assert.Equal(t, StateIdle, rec.State())
}

// TestRecorder_ReentrantStartIsNoop verifies a second start while recording
// does nothing.
func TestRecorder_ReentrantStartIsNoop(t *testing.T) {
	engine, backend := newFakeEngine()
	rec := NewRecorder(engine, "", []int{16000})

	require.NoError(t, rec.Start())
	first := backend.capture
	require.NoError(t, rec.Start())
	assert.Same(t, first, backend.capture, "no second stream opened")
	rec.Abort()
}

// TestRecorder_PermissionDenied verifies the distinguished failure code.
func TestRecorder_PermissionDenied(t *testing.T) {
	engine, backend := newFakeEngine()
	backend.captureErr = errors.New("Input device permission denied by OS")
	rec := NewRecorder(engine, "", []int{16000})

	err := rec.Start()
	require.Error(t, err)
	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, FailPermission, capErr.Code)
	assert.Equal(t, StateIdle, rec.State())
}

func TestClassifyCaptureError(t *testing.T) {
	cases := []struct {
		err  error
		code FailCode
	}{
		{ErrNoDevice, FailNoDevice},
		{ErrBusy, FailBusy},
		{ErrPermission, FailPermission},
		{ErrUnsupported, FailUnsupported},
		{ErrEmptyClip, FailEmptyClip},
		{errors.New("mic is busy right now"), FailBusy},
		{errors.New("stream type not supported"), FailUnsupported},
		{errors.New("mystery failure"), FailOpenStream},
	}
	for _, tc := range cases {
		got := ClassifyCaptureError(tc.err)
		assert.Equal(t, tc.code, got.Code, "error %v", tc.err)
		assert.NotEmpty(t, got.UserMessage())
	}
}

// =============================================================================
// WAV TESTS
// =============================================================================

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 32767, -32768, 1234, -1234}
	blob := EncodeWAV(samples, 44100, 1)

	clip, err := DecodeWAV(blob)
	require.NoError(t, err)
	assert.Equal(t, samples, clip.Samples)
	assert.Equal(t, 44100, clip.SampleRate)
	assert.Equal(t, 1, clip.Channels)
	assert.InDelta(t, 5.0/44100.0, clip.Duration(), 1e-9)
}

func TestDecodeWAV_Rejections(t *testing.T) {
	_, err := DecodeWAV([]byte("not audio at all"))
	assert.Error(t, err)
	_, err = DecodeWAV(nil)
	assert.Error(t, err)
}

// =============================================================================
// ANALYSER TESTS
// =============================================================================

// TestAnalyser_SineConcentratesEnergy verifies a pure tone lights up the
// bins near its frequency more than distant bins.
func TestAnalyser_SineConcentratesEnergy(t *testing.T) {
	a := NewAnalyser()
	a.SetActive(true)

	// 64 cycles over 512 samples puts the tone at bin 64.
	samples := make([]int16, FFTSize)
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*64*float64(i)/FFTSize))
	}
	// Push several frames so smoothing converges.
	for i := 0; i < 20; i++ {
		a.Push(samples)
	}

	out := make([]byte, BinCount)
	for i := 0; i < 20; i++ {
		a.Frequencies(out)
	}
	assert.Greater(t, int(out[64]), int(out[200])+20, "tone bin should dominate a distant bin")
}

// TestAnalyser_SilenceIsQuiet verifies silence yields near-zero bins.
func TestAnalyser_SilenceIsQuiet(t *testing.T) {
	a := NewAnalyser()
	out := make([]byte, BinCount)
	a.Frequencies(out)
	for i, v := range out {
		assert.LessOrEqual(t, int(v), 5, "bin %d", i)
	}
}

// =============================================================================
// PLAYER TESTS
// =============================================================================

// TestPlayer_PlaysToCompletion drives the fill callback like the output
// device would and verifies completion fires once and releases the stream.
func TestPlayer_PlaysToCompletion(t *testing.T) {
	engine, backend := newFakeEngine()
	analyser := NewAnalyser()
	player := NewPlayer(engine, analyser)

	clip := &Clip{Samples: make([]int16, 2048), SampleRate: 16000, Channels: 1}
	done := make(chan struct{})
	require.NoError(t, player.Play(clip, func() { close(done) }))
	assert.True(t, player.Playing())

	buf := make([]int16, 1024)
	assert.True(t, backend.fill(buf))
	assert.False(t, backend.fill(buf), "second buffer exhausts the clip")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never fired")
	}
	assert.Eventually(t, func() bool { return backend.playback.isClosed() }, time.Second, 10*time.Millisecond)
	assert.False(t, player.Playing())
}

// TestPlayer_StopSuppressesCompletion verifies Stop releases the stream
// without firing onDone.
func TestPlayer_StopSuppressesCompletion(t *testing.T) {
	engine, backend := newFakeEngine()
	player := NewPlayer(engine, NewAnalyser())

	clip := &Clip{Samples: make([]int16, 4096), SampleRate: 16000, Channels: 1}
	fired := false
	require.NoError(t, player.Play(clip, func() { fired = true }))
	player.Stop()

	assert.True(t, backend.playback.isClosed())
	assert.False(t, player.Playing())
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired)
}
