// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared across the client: chats,
// messages, personas, workspaces, memory items, and the text-derivation
// helpers that operate on assistant replies.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// CORE TYPES
// =============================================================================

// Chat is one conversation thread as listed by the backend.
type Chat struct {
	ID            string `json:"id"`
	WorkspaceID   string `json:"workspace_id"`
	PersonaID     string `json:"persona_id"`
	ModelOverride string `json:"model_override"`
	MemoryMode    string `json:"memory_mode"`
	Title         string `json:"title"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ChatMessage is one message inside a chat. Timestamps are unix seconds as
// stored by the backend.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// Persona is a named assistant configuration assignable to workspaces.
type Persona struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AvatarURL    string   `json:"avatar_url"`
	SystemPrompt string   `json:"system_prompt"`
	DefaultModel string   `json:"default_model"`
	TTSVoice     string   `json:"tts_voice"`
	TTSModel     string   `json:"tts_model"`
	TraitsJSON   string   `json:"traits_json"`
	WorkspaceIDs []string `json:"workspace_ids"`
}

// Workspace is a grouping container for personas and chats.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// MemoryItem is persisted context text scoped by tier.
type MemoryItem struct {
	ID        string `json:"id"`
	Tier      string `json:"tier"`
	TierRefID string `json:"tier_ref_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// SessionInfo is the server's view of the current session.
type SessionInfo struct {
	ExpiresAt  int64 `json:"expiresAt"`
	TTLSeconds int64 `json:"ttlSeconds"`
	Now        int64 `json:"now"`
}

// ImageOffer is an assistant's proposal to generate an image for a reply.
// The user must confirm before any generation request is issued.
type ImageOffer struct {
	Prompt string `json:"prompt"`
}

// ChatTurnResult is the reply to a chat-turn submission.
type ChatTurnResult struct {
	Text       string      `json:"text"`
	ChatID     string      `json:"chatId"`
	ImageOffer *ImageOffer `json:"imageOffer,omitempty"`
}

// =============================================================================
// MEMORY TIERS
// =============================================================================

// Memory tiers in lookup-precedence order (global < workspace < persona < chat).
const (
	TierGlobal    = "global"
	TierWorkspace = "workspace"
	TierPersona   = "persona"
	TierChat      = "chat"
)

// TierOrder fixes the display order of memory tiers.
var TierOrder = []string{TierGlobal, TierWorkspace, TierPersona, TierChat}

// GroupedMemory splits memory items into the two settings-screen sections:
// chat-tier items are "pending" promotion, everything else is active.
type GroupedMemory struct {
	Active  []MemoryItem
	Pending []MemoryItem
}

// GroupMemory partitions items for the memory manager. Order within each
// group is preserved.
func GroupMemory(items []MemoryItem) GroupedMemory {
	var g GroupedMemory
	for _, m := range items {
		if m.Tier == TierChat {
			g.Pending = append(g.Pending, m)
		} else {
			g.Active = append(g.Active, m)
		}
	}
	return g
}

// MemoryByTier groups items by tier, keyed for the tiered display.
func MemoryByTier(items []MemoryItem) map[string][]MemoryItem {
	out := make(map[string][]MemoryItem)
	for _, m := range items {
		out[m.Tier] = append(out[m.Tier], m)
	}
	return out
}

// =============================================================================
// PERSONA TRAITS
// =============================================================================

// Traits is the persona personality model. Sliders are 0-100 with 50 as the
// neutral default.
type Traits struct {
	Warmth         int    `json:"warmth"`
	Creativity     int    `json:"creativity"`
	Directness     int    `json:"directness"`
	Conversational int    `json:"conversational"`
	Casual         int    `json:"casual"`
	Gender         string `json:"gender"`
	GenderOther    string `json:"gender_other"`
	Age            string `json:"age"`
}

// DefaultTraits returns the neutral trait set.
func DefaultTraits() Traits {
	return Traits{
		Warmth:         50,
		Creativity:     50,
		Directness:     50,
		Conversational: 50,
		Casual:         50,
		Gender:         "unspecified",
	}
}

// ParseTraits decodes a persona's traits_json column, backfilling defaults
// for missing fields. Malformed input yields the defaults.
func ParseTraits(raw string) Traits {
	out := DefaultTraits()
	if strings.TrimSpace(raw) == "" {
		return out
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return DefaultTraits()
	}
	slider := func(key string, fallback int) int {
		switch v := parsed[key].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
		return fallback
	}
	str := func(key, fallback string) string {
		if v, ok := parsed[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}
	out.Warmth = slider("warmth", out.Warmth)
	out.Creativity = slider("creativity", out.Creativity)
	out.Directness = slider("directness", out.Directness)
	out.Conversational = slider("conversational", out.Conversational)
	out.Casual = slider("casual", out.Casual)
	out.Gender = str("gender", out.Gender)
	out.GenderOther = str("gender_other", out.GenderOther)
	out.Age = str("age", out.Age)
	return out
}

// Encode serializes traits back into the traits_json column format.
func (t Traits) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
