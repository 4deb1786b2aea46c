// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// DIAGNOSTIC EVENT CHANNEL
// =============================================================================

// Diagnostic event types posted to the backend log endpoint.
const (
	EventAPIError       = "api.error"
	EventUIError        = "ui.error"
	EventRecordingStart = "recording.start"
	EventSTTSuccess     = "stt.success"
	EventSTTEmpty       = "stt.empty"
	EventSTTError       = "stt.error"
	EventSettingsChange = "settings.change"
	EventAppReady       = "app.ready"
	EventUIKey          = "ui.key"
	EventUIChange       = "ui.change"
)

// Diagnostics posts structured client events to the backend, fire-and-forget.
// Failures are swallowed; diagnostic logging must never surface to the user
// or interrupt a primary flow. Outgoing events are rate-limited, with an
// optional local fallback file that records everything regardless of the
// limiter.
type Diagnostics struct {
	client  *Client
	limiter *rate.Limiter

	mu       sync.Mutex
	enabled  bool
	logFile  string
	sendable bool // true once a session user is known
}

// NewDiagnostics creates the diagnostic channel. eventsPerSecond bounds the
// posting rate; logFile may be empty to disable the local fallback.
func NewDiagnostics(client *Client, eventsPerSecond float64, logFile string) *Diagnostics {
	if eventsPerSecond <= 0 {
		eventsPerSecond = 5
	}
	return &Diagnostics{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), int(eventsPerSecond)+1),
		enabled: true,
		logFile: logFile,
	}
}

// SetEnabled toggles posting to the backend. The local fallback file keeps
// recording either way.
func (d *Diagnostics) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// SetAuthenticated marks whether a user session exists. Events are only
// posted while authenticated, matching the backend's auth requirement.
func (d *Diagnostics) SetAuthenticated(authed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendable = authed
}

// Log records one diagnostic event. Never blocks the caller: the network
// post happens on its own goroutine and every failure path is silent.
func (d *Diagnostics) Log(eventType, message string, details map[string]any) {
	d.appendLocal(eventType, message, details)

	d.mu.Lock()
	send := d.enabled && d.sendable
	d.mu.Unlock()
	if !send || !d.limiter.Allow() {
		return
	}

	payload := map[string]any{
		"type":    eventType,
		"message": message,
		"details": details,
	}
	if details == nil {
		payload["details"] = map[string]any{}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = d.client.post(ctx, "/api/logs/client", payload, nil)
	}()
}

// appendLocal writes one line of JSON to the fallback log file, if set.
func (d *Diagnostics) appendLocal(eventType, message string, details map[string]any) {
	d.mu.Lock()
	path := d.logFile
	d.mu.Unlock()
	if path == "" {
		return
	}
	entry := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"type":    eventType,
		"message": message,
	}
	if len(details) > 0 {
		entry["details"] = details
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, string(line))
}
