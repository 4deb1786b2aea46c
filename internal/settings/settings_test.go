// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

// TestNormalize_BackfillsEveryDefaultKey verifies that a normalized bag
// always contains every recognized key, even from an empty input.
func TestNormalize_BackfillsEveryDefaultKey(t *testing.T) {
	out := Normalize(nil)
	for key := range Defaults() {
		_, ok := out[key]
		assert.True(t, ok, "missing key %q after normalization", key)
	}
}

// TestNormalize_PrecedenceOrder verifies defaults < raw columns < embedded
// preferences_json.
func TestNormalize_PrecedenceOrder(t *testing.T) {
	raw := map[string]any{
		"tts_voice":        "echo",
		"tts_model":        "from-column",
		"preferences_json": `{"tts_model":"from-prefs"}`,
	}
	out := Normalize(raw)
	assert.Equal(t, "echo", out.String("tts_voice"), "raw column should override default")
	assert.Equal(t, "from-prefs", out.String("tts_model"), "preferences_json should override raw column")
	assert.Equal(t, "alloy", Defaults().String("tts_voice"))
}

// TestNormalize_MalformedPreferencesJSON verifies a bad sub-document is
// ignored rather than failing normalization.
func TestNormalize_MalformedPreferencesJSON(t *testing.T) {
	out := Normalize(map[string]any{
		"preferences_json": `{not json`,
		"tts_voice":        "nova",
	})
	assert.Equal(t, "nova", out.String("tts_voice"))
	assert.Equal(t, "dark", out.String("general_theme"))
}

// TestNormalize_ModelOverridesAlwaysObject covers the null / missing /
// wrong-type cases for model_overrides.
func TestNormalize_ModelOverridesAlwaysObject(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]any
	}{
		{"missing", map[string]any{}},
		{"null", map[string]any{"model_overrides": nil}},
		{"string", map[string]any{"model_overrides": "oops"}},
		{"number", map[string]any{"model_overrides": 3.0}},
		{"via prefs null", map[string]any{"preferences_json": `{"model_overrides":null}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Normalize(tc.raw)
			m, ok := out["model_overrides"].(map[string]any)
			require.True(t, ok, "model_overrides must be an object")
			require.NotNil(t, m)
		})
	}
}

// TestNormalizeImageQuality_Aliases verifies every legacy alias maps to its
// replacement and out-of-set values fall back to the default.
func TestNormalizeImageQuality_Aliases(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"standard", "medium"},
		{"hd", "high"},
		{"low", "low"},
		{"medium", "medium"},
		{"high", "high"},
		{"auto", "auto"},
		{"ultra", "auto"},
		{"", "auto"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeImageQuality(tc.in), "quality %q", tc.in)
	}
}

// TestNormalizeImageSize verifies unsupported sizes fall back to the default.
func TestNormalizeImageSize(t *testing.T) {
	assert.Equal(t, "1536x1024", NormalizeImageSize("1536x1024"))
	assert.Equal(t, "auto", NormalizeImageSize("auto"))
	assert.Equal(t, "1024x1024", NormalizeImageSize("512x512"))
	assert.Equal(t, "1024x1024", NormalizeImageSize(""))
}

// TestResetSection restores a section's keys and leaves the rest alone.
func TestResetSection(t *testing.T) {
	s := Normalize(nil)
	s["tts_voice"] = "nova"
	s["tts_speed"] = "2"
	s["general_theme"] = "light"

	s.ResetSection("TTS")

	assert.Equal(t, "alloy", s.String("tts_voice"))
	assert.Equal(t, "1", s.String("tts_speed"))
	assert.Equal(t, "light", s.String("general_theme"), "other sections untouched")
}

// =============================================================================
// ACCESSOR TESTS
// =============================================================================

// TestBool_FlattenedRepresentations verifies SQLite/JSON flattened booleans
// are read back correctly.
func TestBool_FlattenedRepresentations(t *testing.T) {
	s := Settings{
		"a": true,
		"b": 1,
		"c": float64(1),
		"d": "true",
		"e": "1",
		"f": false,
		"g": 0,
		"h": "no",
		"i": nil,
	}
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, s.Bool(key), "key %q", key)
	}
	for _, key := range []string{"f", "g", "h", "i", "missing"} {
		assert.False(t, s.Bool(key), "key %q", key)
	}
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

// TestPayload_RoundTripsPreferences verifies the payload re-embeds every
// preference into preferences_json and that normalizing the payload yields
// the same effective values.
func TestPayload_RoundTripsPreferences(t *testing.T) {
	s := Normalize(nil)
	s["general_theme"] = "light"
	s["general_voice_responses"] = false
	s["tts_voice"] = "nova"
	s.SetModelOverride("llama3", "temperature", "0.2")

	payload, err := s.Payload()
	require.NoError(t, err)

	pj, ok := payload["preferences_json"].(string)
	require.True(t, ok)
	var prefs map[string]any
	require.NoError(t, json.Unmarshal([]byte(pj), &prefs))
	assert.Equal(t, "light", prefs["general_theme"])
	assert.Equal(t, false, prefs["general_voice_responses"])
	assert.Equal(t, "nova", prefs["tts_voice"])

	back := Normalize(payload)
	assert.Equal(t, "light", back.String("general_theme"))
	assert.False(t, back.Bool("general_voice_responses"))
	assert.Equal(t, "0.2", back.ModelSettingsFor("llama3").Temperature)
}

// TestPayload_OnboardingFlattensToInt verifies onboarding_done serializes as
// 0/1 the way the backend column expects.
func TestPayload_OnboardingFlattensToInt(t *testing.T) {
	s := Normalize(nil)
	payload, err := s.Payload()
	require.NoError(t, err)
	assert.Equal(t, 0, payload["onboarding_done"])

	s["onboarding_done"] = true
	payload, err = s.Payload()
	require.NoError(t, err)
	assert.Equal(t, 1, payload["onboarding_done"])
}

// TestPayload_CoercesImageFields verifies legacy image values are mapped
// inside the serialized preferences.
func TestPayload_CoercesImageFields(t *testing.T) {
	s := Normalize(nil)
	s["image_quality"] = "hd"
	s["image_size"] = "640x480"

	payload, err := s.Payload()
	require.NoError(t, err)
	var prefs map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload["preferences_json"].(string)), &prefs))
	assert.Equal(t, "high", prefs["image_quality"])
	assert.Equal(t, "1024x1024", prefs["image_size"])
}

// =============================================================================
// PER-MODEL RESOLUTION TESTS
// =============================================================================

// TestModelSettingsFor_OverridePrecedence verifies override > global > default.
func TestModelSettingsFor_OverridePrecedence(t *testing.T) {
	s := Normalize(map[string]any{
		"models_temperature": "0.9",
	})
	s.SetModelOverride("llama3", "temperature", "0.1")

	tuned := s.ModelSettingsFor("llama3")
	assert.Equal(t, "0.1", tuned.Temperature, "per-model override wins")
	assert.Equal(t, "1", tuned.TopP, "global setting used when no override")

	other := s.ModelSettingsFor("mistral")
	assert.Equal(t, "0.9", other.Temperature, "global setting for other models")

	none := Settings{}.ModelSettingsFor("anything")
	assert.Equal(t, "0.7", none.Temperature, "defaults when nothing is set")
}

// TestModelSettingsFor_NumericOverrideValues verifies numeric override values
// arriving from JSON are rendered as strings.
func TestModelSettingsFor_NumericOverrideValues(t *testing.T) {
	s := Normalize(map[string]any{
		"preferences_json": `{"model_overrides":{"llama3":{"num_predict":1024}}}`,
	})
	assert.Equal(t, "1024", s.ModelSettingsFor("llama3").NumPredict)
}

// TestModelNickname verifies nickname fallback behavior.
func TestModelNickname(t *testing.T) {
	s := Normalize(nil)
	assert.Equal(t, "llama3", s.ModelNickname("llama3"))
	s.SetModelOverride("llama3", "nickname", "  Fast One  ")
	assert.Equal(t, "Fast One", s.ModelNickname("llama3"))
	s.SetModelOverride("llama3", "nickname", "   ")
	assert.Equal(t, "llama3", s.ModelNickname("llama3"))
	assert.Equal(t, "", s.ModelNickname(""))
}
