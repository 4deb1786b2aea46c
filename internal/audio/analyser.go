// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"math"
	"math/cmplx"
	"sync"
)

// =============================================================================
// SPECTRUM ANALYSER
// =============================================================================

// Analyser parameters. A 512-point transform yields 256 frequency bins,
// reported as bytes on a decibel scale.
const (
	FFTSize  = 512
	BinCount = FFTSize / 2

	minDecibels = -100.0
	maxDecibels = -30.0

	// smoothing applies an exponential moving average across frames so the
	// reported spectrum does not jitter.
	smoothing = 0.8
)

// Analyser taps playback samples and exposes byte-normalized frequency
// magnitudes. Safe for one writer (the playback callback) and one reader
// (the visualization tick).
type Analyser struct {
	mu       sync.Mutex
	ring     [FFTSize]float64
	pos      int
	smoothed [BinCount]float64
	active   bool
}

// NewAnalyser creates an analyser with an empty sample window.
func NewAnalyser() *Analyser {
	return &Analyser{}
}

// SetActive marks whether playback is feeding the analyser. While
// inactive, Frequencies decays to silence instead of holding the last
// frame.
func (a *Analyser) SetActive(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = active
	if !active {
		a.ring = [FFTSize]float64{}
	}
}

// Push appends playback samples to the analysis window. Multi-channel
// input should be downmixed by the caller; mono is assumed here.
func (a *Analyser) Push(samples []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s) / 32768.0
		a.pos = (a.pos + 1) % FFTSize
	}
}

// Frequencies fills out with the current byte-normalized bin magnitudes,
// 0..255 mapped from the [-100, -30] dB range. out must hold BinCount
// entries.
func (a *Analyser) Frequencies(out []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Unroll the ring into time order with a Hann window applied.
	var windowed [FFTSize]complex128
	for i := 0; i < FFTSize; i++ {
		sample := a.ring[(a.pos+i)%FFTSize]
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FFTSize-1)))
		windowed[i] = complex(sample*w, 0)
	}
	spectrum := fft(windowed[:])

	for i := 0; i < BinCount && i < len(out); i++ {
		magnitude := cmplx.Abs(spectrum[i]) / float64(FFTSize)
		a.smoothed[i] = smoothing*a.smoothed[i] + (1-smoothing)*magnitude

		db := -100.0
		if a.smoothed[i] > 0 {
			db = 20 * math.Log10(a.smoothed[i])
		}
		scaled := (db - minDecibels) / (maxDecibels - minDecibels) * 255
		if scaled < 0 {
			scaled = 0
		}
		if scaled > 255 {
			scaled = 255
		}
		out[i] = byte(scaled)
	}
}

// fft computes an in-place radix-2 Cooley-Tukey transform. len(x) must be
// a power of two.
func fft(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		return x
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Rect(1, angle)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := x[start+k]
				v := x[start+k+length/2] * w
				x[start+k] = u + v
				x[start+k+length/2] = u - v
				w *= wl
			}
		}
	}
	return x
}
