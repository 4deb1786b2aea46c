// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the nice-tui client.
// The palette is selected explicitly from the synced theme setting rather
// than detected from the terminal: the server's theme wins, and the choice
// is persisted locally so the next launch starts on the right palette.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette is one resolved color set. Dark and Light carry the same roles
// so every style reads from role names, never from raw hex.
type Palette struct {
	Name string

	// Accents
	Accent     lipgloss.Color // primary teal/cyan accent
	AccentDeep lipgloss.Color
	Violet     lipgloss.Color // assistant accent
	Emerald    lipgloss.Color // success, active memory
	Amber      lipgloss.Color // warnings, pending memory
	Rose       lipgloss.Color // errors, destructive actions
	RoseDeep   lipgloss.Color

	// Surfaces
	Surface       lipgloss.Color
	SurfaceDim    lipgloss.Color
	SurfaceBright lipgloss.Color
	Overlay       lipgloss.Color

	// Text
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextInverse   lipgloss.Color

	// Message bubbles
	UserBubbleBg      lipgloss.Color
	UserBubbleFg      lipgloss.Color
	AssistantBubbleBg lipgloss.Color
	AssistantBubbleFg lipgloss.Color
	SystemBubbleBg    lipgloss.Color
	SystemBubbleFg    lipgloss.Color
	ThinkingFg        lipgloss.Color
}

// Dark is the default palette, matching the deep-space look of the
// visualization backdrop.
var Dark = Palette{
	Name: "dark",

	Accent:     lipgloss.Color("#5FF7FF"),
	AccentDeep: lipgloss.Color("#164E63"),
	Violet:     lipgloss.Color("#B484FF"),
	Emerald:    lipgloss.Color("#34D399"),
	Amber:      lipgloss.Color("#FBBF24"),
	Rose:       lipgloss.Color("#FB7185"),
	RoseDeep:   lipgloss.Color("#881337"),

	Surface:       lipgloss.Color("#0B1220"),
	SurfaceDim:    lipgloss.Color("#070D18"),
	SurfaceBright: lipgloss.Color("#16233A"),
	Overlay:       lipgloss.Color("#243349"),

	TextPrimary:   lipgloss.Color("#E6F1FF"),
	TextSecondary: lipgloss.Color("#A9BED8"),
	TextMuted:     lipgloss.Color("#64748B"),
	TextInverse:   lipgloss.Color("#0B1220"),

	UserBubbleBg:      lipgloss.Color("#123B4F"),
	UserBubbleFg:      lipgloss.Color("#D7F8FF"),
	AssistantBubbleBg: lipgloss.Color("#1A1F33"),
	AssistantBubbleFg: lipgloss.Color("#E9E4F5"),
	SystemBubbleBg:    lipgloss.Color("#2B2410"),
	SystemBubbleFg:    lipgloss.Color("#FDE9B4"),
	ThinkingFg:        lipgloss.Color("#7C8DA8"),
}

// Light mirrors the dark roles on a bright surface.
var Light = Palette{
	Name: "light",

	Accent:     lipgloss.Color("#0891B2"),
	AccentDeep: lipgloss.Color("#CFFAFE"),
	Violet:     lipgloss.Color("#7C3AED"),
	Emerald:    lipgloss.Color("#059669"),
	Amber:      lipgloss.Color("#D97706"),
	Rose:       lipgloss.Color("#E11D48"),
	RoseDeep:   lipgloss.Color("#FFE4E6"),

	Surface:       lipgloss.Color("#F8FAFC"),
	SurfaceDim:    lipgloss.Color("#EEF2F7"),
	SurfaceBright: lipgloss.Color("#FFFFFF"),
	Overlay:       lipgloss.Color("#D7DEE8"),

	TextPrimary:   lipgloss.Color("#16202E"),
	TextSecondary: lipgloss.Color("#45566E"),
	TextMuted:     lipgloss.Color("#8A99AD"),
	TextInverse:   lipgloss.Color("#F8FAFC"),

	UserBubbleBg:      lipgloss.Color("#DBF3FB"),
	UserBubbleFg:      lipgloss.Color("#0E4A5E"),
	AssistantBubbleBg: lipgloss.Color("#F1EEFA"),
	AssistantBubbleFg: lipgloss.Color("#3B3060"),
	SystemBubbleBg:    lipgloss.Color("#FEF3C7"),
	SystemBubbleFg:    lipgloss.Color("#92400E"),
	ThinkingFg:        lipgloss.Color("#6B7A90"),
}

// PaletteFor maps a theme setting value to its palette. Unknown values
// fall back to dark, matching the client-side theme fallback.
func PaletteFor(theme string) Palette {
	if theme == "light" {
		return Light
	}
	return Dark
}
