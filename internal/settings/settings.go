// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings normalizes the server-side settings bag.
//
// The backend persists a handful of core columns plus a preferences_json
// sub-document; the merged result is a flat key/value bag. Normalize
// guarantees every recognized key is present (defaults backfilled) before
// any other component reads it, with precedence:
//
//	defaults < raw columns < embedded preferences_json
package settings

import (
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// DEFAULTS AND ALLOWED VALUES
// =============================================================================

// Settings is the normalized flat settings bag. Values keep the loose typing
// the backend uses (strings, bools, numbers, and one nested object for
// model_overrides); use the typed accessors rather than asserting directly.
type Settings map[string]any

// ImageQualityValues is the allowed set for the image_quality key.
var ImageQualityValues = []string{"low", "medium", "high", "auto"}

// SupportedImageSizes is the allowed set for the image_size key.
var SupportedImageSizes = []string{"1024x1024", "1024x1536", "1536x1024", "auto"}

// imageQualityAliases maps legacy quality names onto the current set.
var imageQualityAliases = map[string]string{
	"standard": "medium",
	"hd":       "high",
}

// STTLanguage is one selectable transcription language.
type STTLanguage struct {
	Value string
	Label string
}

// STTLanguages lists the transcription language choices offered in settings.
var STTLanguages = []STTLanguage{
	{Value: "auto", Label: "Auto-detect"},
	{Value: "en", Label: "English"},
	{Value: "es", Label: "Español"},
	{Value: "fr", Label: "Français"},
	{Value: "de", Label: "Deutsch"},
}

// Defaults returns a fresh copy of the built-in defaults for every
// recognized settings key.
func Defaults() Settings {
	return Settings{
		"global_default_model":           "",
		"default_memory_mode":            "auto",
		"stt_provider":                   "disabled",
		"tts_provider":                   "disabled",
		"tts_format":                     "wav",
		"openai_api_key":                 "",
		"onboarding_done":                0,
		"general_theme":                  "dark",
		"general_show_system_messages":   false,
		"general_show_thinking":          false,
		"general_auto_logout":            true,
		"tts_voice":                      "alloy",
		"tts_model":                      "gpt-4o-mini-tts",
		"tts_speed":                      "1",
		"stt_language":                   "auto",
		"stt_store_recordings":           false,
		"image_provider":                 "disabled",
		"image_size":                     "1024x1024",
		"image_quality":                  "auto",
		"memory_auto_save_user_facts":    true,
		"user_display_name":              "",
		"user_timezone":                  "local",
		"personas_default_system_prompt": "Be helpful and concise.",
		"workspaces_default_workspace_id": "",
		"models_temperature":             "0.7",
		"models_top_p":                   "1",
		"models_num_predict":             "512",
		"models_presence_penalty":        "0",
		"models_frequency_penalty":       "0",
		"model_overrides":                map[string]any{},
		"general_voice_responses":        true,
		"general_show_viz":               false,
	}
}

// SectionKeys groups settings keys by the section they appear under in the
// settings screen. Resetting a section restores exactly these keys to their
// defaults.
var SectionKeys = map[string][]string{
	"General":          {"general_theme", "general_show_system_messages", "general_show_thinking", "general_auto_logout", "global_default_model"},
	"TTS":              {"tts_provider", "tts_format", "tts_voice", "tts_model", "tts_speed"},
	"STT":              {"stt_provider", "stt_language", "stt_store_recordings"},
	"Image Generation": {"image_provider", "image_size", "image_quality"},
	"Memory":           {"default_memory_mode", "memory_auto_save_user_facts"},
	"User":             {"user_display_name", "user_timezone"},
	"Personas":         {"personas_default_system_prompt"},
	"Workspaces":       {"workspaces_default_workspace_id"},
	"Models":           {"global_default_model", "models_temperature", "models_top_p", "models_num_predict", "models_presence_penalty", "models_frequency_penalty", "model_overrides"},
}

// SectionOrder fixes the display order of settings sections.
var SectionOrder = []string{
	"General", "TTS", "STT", "Image Generation", "Memory", "User",
	"Personas", "Workspaces", "Models",
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeImageSize coerces value into the supported image-size set,
// falling back to the default size when unrecognized.
func NormalizeImageSize(value string) string {
	for _, s := range SupportedImageSizes {
		if value == s {
			return value
		}
	}
	return Defaults()["image_size"].(string)
}

// NormalizeImageQuality coerces value into the allowed quality set, mapping
// legacy aliases first and falling back to the default when unrecognized.
func NormalizeImageQuality(value string) string {
	if alias, ok := imageQualityAliases[value]; ok {
		value = alias
	}
	for _, q := range ImageQualityValues {
		if value == q {
			return value
		}
	}
	return Defaults()["image_quality"].(string)
}

// Normalize merges a raw settings object from the server with its embedded
// preferences_json sub-document and the built-in defaults. Every default key
// is present in the result, model_overrides is always a non-nil object, and
// the two enum-like image fields are coerced to their allowed sets.
func Normalize(raw map[string]any) Settings {
	out := Defaults()
	var extra map[string]any
	if raw != nil {
		if pj, ok := raw["preferences_json"].(string); ok && pj != "" {
			// A malformed sub-document is ignored, not fatal.
			_ = json.Unmarshal([]byte(pj), &extra)
		}
		for k, v := range raw {
			if k == "preferences_json" {
				continue
			}
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	if _, ok := out["model_overrides"].(map[string]any); !ok {
		out["model_overrides"] = map[string]any{}
	}
	out["image_quality"] = NormalizeImageQuality(out.String("image_quality"))
	out["image_size"] = NormalizeImageSize(out.String("image_size"))
	return out
}

// ResetSection restores the keys of one settings section to their defaults.
// Unknown section names are a no-op.
func (s Settings) ResetSection(section string) {
	defaults := Defaults()
	for _, k := range SectionKeys[section] {
		s[k] = defaults[k]
	}
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// String returns the value under key rendered as a string; numbers are
// formatted, booleans become "true"/"false", and missing keys yield "".
func (s Settings) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Bool returns the truthiness of the value under key. JSON round trips and
// SQLite columns both flatten booleans, so 1, "1", and "true" all count.
func (s Settings) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		return lower == "true" || lower == "1" || lower == "yes"
	default:
		return false
	}
}

// Overrides returns the model_overrides object. Normalize guarantees the
// key holds a map, but a defensive empty map is returned for bags that
// bypassed normalization.
func (s Settings) Overrides() map[string]any {
	if m, ok := s["model_overrides"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// =============================================================================
// PAYLOAD AND PER-MODEL RESOLUTION
// =============================================================================

// payloadPreferenceKeys lists the keys serialized into preferences_json, in
// a stable order. Everything else the payload carries is a core column.
var payloadPreferenceKeys = []string{
	"general_theme", "general_show_system_messages", "general_show_thinking",
	"general_auto_logout", "general_voice_responses", "general_show_viz",
	"tts_voice", "tts_model", "tts_speed",
	"stt_language", "stt_store_recordings",
	"image_provider", "image_size", "image_quality",
	"memory_auto_save_user_facts",
	"user_display_name", "user_timezone",
	"personas_default_system_prompt", "workspaces_default_workspace_id",
	"models_temperature", "models_top_p", "models_num_predict",
	"models_presence_penalty", "models_frequency_penalty",
}

// boolPreferenceKeys are coerced to real booleans inside preferences_json
// regardless of how they arrived.
var boolPreferenceKeys = map[string]bool{
	"general_show_system_messages": true,
	"general_show_thinking":        true,
	"general_auto_logout":          true,
	"general_voice_responses":      true,
	"general_show_viz":             true,
	"stt_store_recordings":         true,
	"memory_auto_save_user_facts":  true,
}

// Payload builds the POST /api/settings body: the core columns plus every
// preference re-embedded as a preferences_json string.
func (s Settings) Payload() (map[string]any, error) {
	prefs := map[string]any{}
	for _, k := range payloadPreferenceKeys {
		if boolPreferenceKeys[k] {
			prefs[k] = s.Bool(k)
			continue
		}
		switch k {
		case "image_size":
			prefs[k] = NormalizeImageSize(s.String(k))
		case "image_quality":
			prefs[k] = NormalizeImageQuality(s.String(k))
		default:
			prefs[k] = s.String(k)
		}
	}
	prefs["model_overrides"] = s.Overrides()

	encoded, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	onboarding := 0
	if s.Bool("onboarding_done") {
		onboarding = 1
	}
	return map[string]any{
		"global_default_model": s.String("global_default_model"),
		"default_memory_mode":  s.String("default_memory_mode"),
		"stt_provider":         s.String("stt_provider"),
		"tts_provider":         s.String("tts_provider"),
		"tts_format":           s.String("tts_format"),
		"openai_api_key":       s.String("openai_api_key"),
		"onboarding_done":      onboarding,
		"preferences_json":     string(encoded),
	}, nil
}

// ModelTuning holds the effective generation parameters for one model after
// per-model overrides are layered over the global tuning settings.
type ModelTuning struct {
	Temperature      string `json:"temperature"`
	TopP             string `json:"top_p"`
	NumPredict       string `json:"num_predict"`
	PresencePenalty  string `json:"presence_penalty"`
	FrequencyPenalty string `json:"frequency_penalty"`
}

// ModelSettingsFor resolves the effective tuning for modelName: a per-model
// override wins, then the global models_* setting, then the default.
func (s Settings) ModelSettingsFor(modelName string) ModelTuning {
	var selected map[string]any
	if modelName != "" {
		if m, ok := s.Overrides()[modelName].(map[string]any); ok {
			selected = m
		}
	}
	pick := func(overrideKey, settingKey string) string {
		if selected != nil {
			if v, ok := selected[overrideKey]; ok && v != nil {
				return anyToString(v)
			}
		}
		if v := s.String(settingKey); v != "" {
			return v
		}
		return Defaults()[settingKey].(string)
	}
	return ModelTuning{
		Temperature:      pick("temperature", "models_temperature"),
		TopP:             pick("top_p", "models_top_p"),
		NumPredict:       pick("num_predict", "models_num_predict"),
		PresencePenalty:  pick("presence_penalty", "models_presence_penalty"),
		FrequencyPenalty: pick("frequency_penalty", "models_frequency_penalty"),
	}
}

// SetModelOverride records one tuning key for one model, creating the
// per-model object on first write.
func (s Settings) SetModelOverride(modelName, key string, value any) {
	if modelName == "" {
		return
	}
	overrides := s.Overrides()
	entry, _ := overrides[modelName].(map[string]any)
	if entry == nil {
		entry = map[string]any{}
	}
	entry[key] = value
	overrides[modelName] = entry
	s["model_overrides"] = overrides
}

// ModelNickname returns the user-assigned display name for a model, falling
// back to the model name itself.
func (s Settings) ModelNickname(modelName string) string {
	if modelName == "" {
		return ""
	}
	if entry, ok := s.Overrides()[modelName].(map[string]any); ok {
		if nick, ok := entry["nickname"].(string); ok {
			if trimmed := strings.TrimSpace(nick); trimmed != "" {
				return trimmed
			}
		}
	}
	return modelName
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
