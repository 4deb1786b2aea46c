// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the JSON/REST client for the Nice Assistant
// backend. Every operation normalizes HTTP+JSON failures into an *APIError
// with a consistent message (server error field, then raw body, then status
// code) so callers can surface one string per surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/niceassistant/nice-tui/internal/model"
	"github.com/niceassistant/nice-tui/internal/settings"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultLongTimeout bounds chat-turn and image-generation requests,
	// which wait on model inference.
	DefaultLongTimeout = 3 * time.Minute

	// MaxResponseSize is the maximum allowed JSON response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// MaxAudioResponseSize bounds downloaded TTS clips.
	MaxAudioResponseSize = 50 * 1024 * 1024
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// APIError is a normalized backend failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Nice Assistant backend. Session auth rides on a
// cookie jar shared by every request, matching the browser contract.
type Client struct {
	baseURL string

	// httpClient serves most calls; longClient serves inference-bound ones.
	httpClient *http.Client
	longClient *http.Client
}

// NewClient creates a backend client for baseURL. The trailing slash is
// trimmed so paths can always start with /api.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   DefaultTimeout,
		},
		longClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   DefaultLongTimeout,
		},
	}, nil
}

// WithTimeouts overrides the request timeouts.
func (c *Client) WithTimeouts(normal, long time.Duration) *Client {
	if normal > 0 {
		c.httpClient.Timeout = normal
	}
	if long > 0 {
		c.longClient.Timeout = long
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func readResponse(resp *http.Response, limit int64) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, limit)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == limit {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", limit)
	}
	return body, nil
}

// normalizeError converts a non-2xx response into an *APIError, preferring
// the server's error field, then the raw body, then the status code.
func normalizeError(statusCode int, body []byte) error {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return &APIError{Status: statusCode, Message: parsed.Error}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return &APIError{Status: statusCode, Message: msg}
	}
	return &APIError{Status: statusCode, Message: fmt.Sprintf("%d", statusCode)}
}

// doJSON issues a request with a JSON body (which may be nil) and decodes a
// JSON response into out (which may be nil).
func (c *Client) doJSON(ctx context.Context, client *http.Client, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp, MaxResponseSize)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, c.httpClient, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	return c.doJSON(ctx, c.httpClient, http.MethodPost, path, payload, out)
}

func (c *Client) put(ctx context.Context, path string, payload, out any) error {
	return c.doJSON(ctx, c.httpClient, http.MethodPut, path, payload, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, c.httpClient, http.MethodDelete, path, nil, nil)
}

// =============================================================================
// AUTH AND SESSION
// =============================================================================

// LoginResult carries the session grant returned by a successful login.
type LoginResult struct {
	OK         bool   `json:"ok"`
	UserID     string `json:"userId"`
	ExpiresAt  int64  `json:"expiresAt"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

// Login authenticates and stores the session cookie in the client jar.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	payload := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/api/login", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server session. Callers treat failure as
// best-effort during expiry sign-out.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/logout", nil, nil)
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	return c.post(ctx, "/api/users", payload, nil)
}

// Session returns the server's view of the current session.
func (c *Client) Session(ctx context.Context) (*model.SessionInfo, error) {
	var out model.SessionInfo
	if err := c.get(ctx, "/api/session", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// CATALOG OPERATIONS
// =============================================================================

// Models lists the available model names. Callers treat failure here as
// best-effort; an empty list never affects auth state.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var out struct {
		Models []string `json:"models"`
	}
	if err := c.get(ctx, "/api/models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Workspaces lists the user's workspaces.
func (c *Client) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	var out struct {
		Items []model.Workspace `json:"items"`
	}
	if err := c.get(ctx, "/api/workspaces", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateWorkspace creates a workspace and returns its id.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/workspaces", map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Personas lists the user's personas.
func (c *Client) Personas(ctx context.Context) ([]model.Persona, error) {
	var out struct {
		Items []model.Persona `json:"items"`
	}
	if err := c.get(ctx, "/api/personas", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreatePersonaRequest is the payload for persona creation.
type CreatePersonaRequest struct {
	WorkspaceID  string `json:"workspaceId"`
	Name         string `json:"name"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

// CreatePersona creates a persona and returns its id.
func (c *Client) CreatePersona(ctx context.Context, req CreatePersonaRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/personas", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdatePersona updates persona fields. The payload uses the backend's
// column names; workspace_ids must hold at least one id, which callers
// validate before any network call.
func (c *Client) UpdatePersona(ctx context.Context, id string, payload map[string]any) error {
	return c.put(ctx, "/api/personas/"+id, payload, nil)
}

// DeletePersona removes a persona.
func (c *Client) DeletePersona(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/personas/"+id)
}

// Chats lists chats, most recently updated first.
func (c *Client) Chats(ctx context.Context) ([]model.Chat, error) {
	var out struct {
		Items []model.Chat `json:"items"`
	}
	if err := c.get(ctx, "/api/chats", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ChatDetail fetches one chat and its full message list.
func (c *Client) ChatDetail(ctx context.Context, id string) (*model.Chat, []model.ChatMessage, error) {
	var out struct {
		Chat     model.Chat          `json:"chat"`
		Messages []model.ChatMessage `json:"messages"`
	}
	if err := c.get(ctx, "/api/chats/"+id, &out); err != nil {
		return nil, nil, err
	}
	return &out.Chat, out.Messages, nil
}

// CreateChat creates a chat bound to a persona and returns the new chat id.
func (c *Client) CreateChat(ctx context.Context, title, personaID, memoryMode string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	payload := map[string]string{
		"title":      title,
		"personaId":  personaID,
		"memoryMode": memoryMode,
	}
	if err := c.post(ctx, "/api/chats", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// RenameChat updates a chat title.
func (c *Client) RenameChat(ctx context.Context, id, title string) error {
	return c.put(ctx, "/api/chats/"+id, map[string]string{"title": title}, nil)
}

// UpdateChat updates chat routing fields.
func (c *Client) UpdateChat(ctx context.Context, id string, payload map[string]any) error {
	return c.put(ctx, "/api/chats/"+id, payload, nil)
}

// DeleteChat hides a chat from the drawer.
func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/chats/"+id)
}

// Settings fetches the raw settings row; callers run it through
// settings.Normalize before use.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var out struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.get(ctx, "/api/settings", &out); err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// SaveSettings persists a settings payload built by settings.Payload.
func (c *Client) SaveSettings(ctx context.Context, payload map[string]any) error {
	return c.post(ctx, "/api/settings", payload, nil)
}

// MemoryAll lists every memory item across tiers.
func (c *Client) MemoryAll(ctx context.Context) ([]model.MemoryItem, error) {
	var out struct {
		Items []model.MemoryItem `json:"items"`
	}
	if err := c.get(ctx, "/api/memory/all", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateMemory stores a memory item and returns its id. tierRefID is empty
// for the global tier.
func (c *Client) CreateMemory(ctx context.Context, tier, tierRefID, content string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	payload := map[string]any{"tier": tier, "tier_ref_id": tierRefID, "content": content}
	if tierRefID == "" {
		payload["tier_ref_id"] = nil
	}
	if err := c.post(ctx, "/api/memory", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateMemory rewrites a memory item's content and scope.
func (c *Client) UpdateMemory(ctx context.Context, id, content, tier, tierRefID string) error {
	payload := map[string]any{"content": content, "tier": tier, "tier_ref_id": tierRefID}
	if tierRefID == "" {
		payload["tier_ref_id"] = nil
	}
	return c.put(ctx, "/api/memory/"+id, payload, nil)
}

// DeleteMemory removes a memory item.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/memory/"+id)
}

// =============================================================================
// CHAT TURN, TTS, IMAGES
// =============================================================================

// ChatTurnRequest is a chat-turn submission.
type ChatTurnRequest struct {
	Text          string               `json:"text"`
	ChatID        string               `json:"chatId,omitempty"`
	PersonaID     string               `json:"personaId,omitempty"`
	Model         string               `json:"model,omitempty"`
	MemoryMode    string               `json:"memoryMode,omitempty"`
	ModelSettings settings.ModelTuning `json:"modelSettings"`
}

// SendChatTurn submits a user message and returns the assistant reply plus
// an optional image offer. Uses the long timeout.
func (c *Client) SendChatTurn(ctx context.Context, req ChatTurnRequest) (*model.ChatTurnResult, error) {
	var out model.ChatTurnResult
	if err := c.doJSON(ctx, c.longClient, http.MethodPost, "/api/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TTSResult is the synthesized-speech handle returned by the backend.
type TTSResult struct {
	AudioURL string `json:"audioUrl"`
	Format   string `json:"format"`
}

// Synthesize requests speech for text and returns the clip's URL.
func (c *Client) Synthesize(ctx context.Context, text, chatID, personaID, format string) (*TTSResult, error) {
	var out TTSResult
	payload := map[string]string{
		"text":      text,
		"chatId":    chatID,
		"personaId": personaID,
		"format":    format,
	}
	if err := c.doJSON(ctx, c.longClient, http.MethodPost, "/api/tts", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateImage requests image generation into the chat transcript. Uses
// the long timeout.
func (c *Client) GenerateImage(ctx context.Context, prompt, chatID string) error {
	payload := map[string]string{"prompt": prompt, "chatId": chatID}
	return c.doJSON(ctx, c.longClient, http.MethodPost, "/api/images/generate", payload, nil)
}

// FetchBytes downloads a server-relative resource, such as a TTS clip or a
// generated image, and returns the raw bytes with the response content type.
func (c *Client) FetchBytes(ctx context.Context, path string) ([]byte, string, error) {
	url := path
	if strings.HasPrefix(path, "/") {
		url = c.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.longClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp, MaxAudioResponseSize)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", normalizeError(resp.StatusCode, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
