// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// =============================================================================
// SPEECH-TO-TEXT UPLOAD
// =============================================================================

// STTResult is the transcription returned for an uploaded recording.
type STTResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// FilenameForMime picks the upload filename extension matching a recorded
// clip's mime type.
func FilenameForMime(mimeType string) string {
	switch {
	case mimeType == "":
		return "audio.wav"
	case strings.Contains(mimeType, "wav"):
		return "audio.wav"
	case strings.Contains(mimeType, "mp4"):
		return "audio.mp4"
	case strings.Contains(mimeType, "ogg"):
		return "audio.ogg"
	default:
		return "audio.webm"
	}
}

// Transcribe uploads a recorded clip as multipart form data and returns the
// recognized text. An empty clip is rejected client-side before any upload.
func (c *Client) Transcribe(ctx context.Context, data []byte, mimeType string) (*STTResult, error) {
	if len(data) == 0 {
		return nil, &APIError{Message: "recording is empty"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, FilenameForMime(mimeType)))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stt", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.longClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp, MaxResponseSize)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeError(resp.StatusCode, body)
	}

	var out STTResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}
