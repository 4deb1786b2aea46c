// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL)
	require.NoError(t, err)
	return client, server
}

// =============================================================================
// ERROR NORMALIZATION TESTS
// =============================================================================

// TestErrorNormalization_Precedence verifies server error field > raw body >
// status code.
func TestErrorNormalization_Precedence(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server error field", 401, `{"error":"invalid credentials"}`, "invalid credentials"},
		{"raw body fallback", 500, "upstream exploded", "upstream exploded"},
		{"json without error field", 400, `{"detail":"nope"}`, `{"detail":"nope"}`},
		{"empty body falls back to status", 503, "", "503"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			_, err := client.Workspaces(context.Background())
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantMsg, apiErr.Message)
		})
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

// TestLogin_CookiePersistsAcrossRequests verifies the jar carries the
// session cookie into later calls.
func TestLogin_CookiePersistsAcrossRequests(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			http.SetCookie(w, &http.Cookie{Name: "na_session", Value: "tok123", Path: "/"})
			io.WriteString(w, `{"ok":true,"userId":"u1","expiresAt":1700000000,"ttlSeconds":900}`)
		case "/api/session":
			cookie, err := r.Cookie("na_session")
			if err != nil || cookie.Value != "tok123" {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":"unauthorized"}`)
				return
			}
			io.WriteString(w, `{"expiresAt":1700000000,"ttlSeconds":900,"now":1699999100}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	result, err := client.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, int64(900), result.TTLSeconds)

	info, err := client.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), info.ExpiresAt)
}

// =============================================================================
// CATALOG AND CHAT TESTS
// =============================================================================

func TestChats_ListAndDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chats":
			io.WriteString(w, `{"items":[{"id":"c1","title":"First","persona_id":"p1"}]}`)
		case "/api/chats/c1":
			io.WriteString(w, `{"chat":{"id":"c1","title":"First"},"messages":[{"id":"m1","role":"user","text":"hi"},{"id":"m2","role":"assistant","text":"hello"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	chats, err := client.Chats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "p1", chats[0].PersonaID)

	chat, messages, err := client.ChatDetail(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "First", chat.Title)
	require.Len(t, messages, 2)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestSendChatTurn_CarriesTuningAndParsesOffer(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, `{"text":"A castle it is.","chatId":"c9","imageOffer":{"prompt":"a castle"}}`)
	}))

	req := ChatTurnRequest{Text: "draw a castle", ChatID: "c9", PersonaID: "p1", Model: "llama3", MemoryMode: "auto"}
	req.ModelSettings.Temperature = "0.7"
	result, err := client.SendChatTurn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "c9", result.ChatID)
	require.NotNil(t, result.ImageOffer)
	assert.Equal(t, "a castle", result.ImageOffer.Prompt)

	tuning, ok := got["modelSettings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0.7", tuning["temperature"])
}

// =============================================================================
// STT UPLOAD TESTS
// =============================================================================

func TestTranscribe_MultipartUpload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/stt", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFFdata"), data)
		io.WriteString(w, `{"text":"hello world","language":"en"}`)
	}))

	result, err := client.Transcribe(context.Background(), []byte("RIFFdata"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
}

// TestTranscribe_EmptyClipRejectedBeforeUpload verifies no request is issued
// for an empty recording.
func TestTranscribe_EmptyClipRejectedBeforeUpload(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := client.Transcribe(context.Background(), nil, "audio/wav")
	require.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())
}

func TestFilenameForMime(t *testing.T) {
	assert.Equal(t, "audio.wav", FilenameForMime("audio/wav"))
	assert.Equal(t, "audio.mp4", FilenameForMime("audio/mp4"))
	assert.Equal(t, "audio.ogg", FilenameForMime("audio/ogg;codecs=opus"))
	assert.Equal(t, "audio.webm", FilenameForMime("audio/webm"))
	assert.Equal(t, "audio.wav", FilenameForMime(""))
}

// =============================================================================
// DIAGNOSTICS TESTS
// =============================================================================

// TestDiagnostics_PostsWhenAuthenticated verifies events reach the backend
// and never propagate failures.
func TestDiagnostics_PostsWhenAuthenticated(t *testing.T) {
	received := make(chan map[string]any, 1)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/logs/client", r.URL.Path)
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		received <- payload
		io.WriteString(w, `{"ok":true}`)
	}))

	diag := NewDiagnostics(client, 10, "")
	diag.SetAuthenticated(true)
	diag.Log(EventSTTSuccess, "transcribed", map[string]any{"chars": 11})

	select {
	case payload := <-received:
		assert.Equal(t, "stt.success", payload["type"])
		assert.Equal(t, "transcribed", payload["message"])
	case <-time.After(2 * time.Second):
		t.Fatal("diagnostic event never posted")
	}
}

// TestDiagnostics_SilentWhenUnauthenticated verifies no request goes out
// before login, matching the backend auth requirement.
func TestDiagnostics_SilentWhenUnauthenticated(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	diag := NewDiagnostics(client, 10, "")
	diag.Log(EventUIError, "boom", nil)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), hits.Load())
}

// TestDiagnostics_LocalFallbackFile verifies the local log records events
// even while posting is disabled.
func TestDiagnostics_LocalFallbackFile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	logPath := filepath.Join(t.TempDir(), "nice-tui.log")

	diag := NewDiagnostics(client, 10, logPath)
	diag.SetEnabled(false)
	diag.Log(EventAppReady, "ready", nil)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"type":"app.ready"`))
}
