// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session schedules the inactivity auto-logout timer.
//
// At most one timer is pending at a time: rearming always cancels the
// previous one first, and a monotonically increasing arm generation lets a
// stale expiry that already fired be recognized and discarded.
package session

import (
	"sync"
	"time"
)

// Minimum effective TTL; a server-provided TTL below this is clamped so a
// misconfigured backend cannot cause instant logouts.
const minTTL = time.Second

// slack added past the computed deadline so the timer fires strictly after
// the session is stale.
const slack = 50 * time.Millisecond

// DefaultTTL applies when the server has not reported a TTL yet.
const DefaultTTL = 30 * time.Minute

// Timer owns the single pending auto-logout callback.
type Timer struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// NewTimer creates an unarmed session timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Arm schedules onExpire to fire at lastActivity + ttl (+ slack), clearing
// any previously pending timer. It returns the arm generation; onExpire
// receives the same generation so late callbacks can be matched against
// Generation(). A non-positive ttl falls back to DefaultTTL.
func (t *Timer) Arm(lastActivity time.Time, ttl time.Duration, onExpire func(generation uint64)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	t.generation++
	gen := t.generation

	delay := time.Until(t.deadlineLocked(lastActivity, ttl)) + slack
	if delay < 0 {
		delay = 0
	}
	t.timer = time.AfterFunc(delay, func() {
		onExpire(gen)
	})
	return gen
}

// Cancel clears any pending timer without scheduling a new one. Used when
// the auto-logout setting is disabled or the user signs out.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
}

// Generation returns the current arm generation. An expiry callback whose
// generation no longer matches was superseded and must be ignored.
func (t *Timer) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Deadline computes the absolute expiry instant for a given activity time
// and TTL, before slack.
func (t *Timer) Deadline(lastActivity time.Time, ttl time.Duration) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < minTTL {
		ttl = minTTL
	}
	return t.deadlineLocked(lastActivity, ttl)
}

func (t *Timer) deadlineLocked(lastActivity time.Time, ttl time.Duration) time.Time {
	return lastActivity.Add(ttl)
}
