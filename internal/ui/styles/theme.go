// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds every styled component the client renders. A theme is built
// once per palette switch; views read styles, never colors.
type Theme struct {
	Palette      Palette
	ColorProfile termenv.Profile
	HasTrueColor bool

	// Layout dimensions, updated on terminal resize.
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CHROME
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// SIDEBAR / CHAT DRAWER
	// ==========================================================================

	Sidebar          lipgloss.Style
	SidebarHeading   lipgloss.Style
	DrawerRow        lipgloss.Style
	DrawerRowActive  lipgloss.Style
	DrawerRowMeta    lipgloss.Style
	WorkspaceBadge   lipgloss.Style
	PersonaCard      lipgloss.Style
	PersonaCardFocus lipgloss.Style

	// ==========================================================================
	// MESSAGE TRANSCRIPT
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	ThinkingBlock   lipgloss.Style
	ThinkingLabel   lipgloss.Style
	MessageMeta     lipgloss.Style
	PendingMarker   lipgloss.Style
	ImageLink       lipgloss.Style

	// ==========================================================================
	// COMPOSER
	// ==========================================================================

	Composer           lipgloss.Style
	ComposerPrompt     lipgloss.Style
	ComposerPlaceholder lipgloss.Style
	RecordIdle         lipgloss.Style
	RecordActive       lipgloss.Style

	// ==========================================================================
	// STATUS PILL
	// ==========================================================================

	StatusIdle    lipgloss.Style
	StatusBusy    lipgloss.Style
	StatusError   lipgloss.Style
	StatusSpeech  lipgloss.Style
	StatusBar     lipgloss.Style
	ShortcutKey   lipgloss.Style
	ShortcutDesc  lipgloss.Style

	// ==========================================================================
	// MODALS AND OVERLAYS
	// ==========================================================================

	ModalCard       lipgloss.Style
	ModalTitle      lipgloss.Style
	ModalBody       lipgloss.Style
	ModalButton     lipgloss.Style
	ModalButtonHot  lipgloss.Style
	DangerButton    lipgloss.Style
	DangerButtonHot lipgloss.Style

	// ==========================================================================
	// SETTINGS
	// ==========================================================================

	SettingsSection      lipgloss.Style
	SettingsSectionTitle lipgloss.Style
	SettingLabel         lipgloss.Style
	SettingValue         lipgloss.Style
	SettingValueFocus    lipgloss.Style
	SettingHint          lipgloss.Style
	SliderTrack          lipgloss.Style
	SliderFill           lipgloss.Style

	// ==========================================================================
	// MEMORY
	// ==========================================================================

	MemoryActive  lipgloss.Style
	MemoryPending lipgloss.Style
	MemoryTier    lipgloss.Style

	// ==========================================================================
	// AUTH / ONBOARDING
	// ==========================================================================

	AuthCard   lipgloss.Style
	AuthTitle  lipgloss.Style
	AuthField  lipgloss.Style
	AuthError  lipgloss.Style

	// ==========================================================================
	// VISUALIZATION PANEL
	// ==========================================================================

	VizFrame lipgloss.Style

	// ==========================================================================
	// GENERIC STATES
	// ==========================================================================

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
}

// NewTheme builds a theme for the given palette name ("dark" or "light").
func NewTheme(theme string) *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		Palette:      PaletteFor(theme),
		ColorProfile: profile,
		HasTrueColor: profile == termenv.TrueColor,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	p := t.Palette

	t.App = lipgloss.NewStyle()

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		Background(p.SurfaceDim).
		Padding(0, 2)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	// Sidebar / drawer
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.SidebarHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.TextSecondary).
		MarginTop(1)

	t.DrawerRow = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Padding(0, 1)

	t.DrawerRowActive = lipgloss.NewStyle().
		Background(p.AccentDeep).
		Foreground(p.Accent).
		Bold(true).
		Padding(0, 1)

	t.DrawerRowMeta = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.WorkspaceBadge = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Violet).
		Padding(0, 1).
		Bold(true)

	t.PersonaCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 2)

	t.PersonaCardFocus = t.PersonaCard.
		BorderForeground(p.Accent).
		Bold(true)

	// Transcript
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserBubbleFg).
		Background(p.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 2).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(p.AssistantBubbleFg).
		Background(p.AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Violet).
		Padding(0, 2).
		MarginRight(4)

	t.SystemBubble = lipgloss.NewStyle().
		Foreground(p.SystemBubbleFg).
		Background(p.SystemBubbleBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(p.Amber).
		Padding(0, 2).
		Align(lipgloss.Center)

	t.ThinkingBlock = lipgloss.NewStyle().
		Foreground(p.ThinkingFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.Overlay).
		PaddingLeft(2).
		Italic(true)

	t.ThinkingLabel = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Bold(true)

	t.MessageMeta = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.PendingMarker = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.ImageLink = lipgloss.NewStyle().
		Foreground(p.Accent).
		Underline(true)

	// Composer
	t.Composer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.ComposerPrompt = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ComposerPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.RecordIdle = lipgloss.NewStyle().
		Foreground(p.TextSecondary)

	t.RecordActive = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Rose).
		Bold(true).
		Padding(0, 1)

	// Status pill and status bar
	t.StatusIdle = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Padding(0, 1)

	t.StatusBusy = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true).
		Padding(0, 1)

	t.StatusError = lipgloss.NewStyle().
		Foreground(p.Rose).
		Bold(true).
		Padding(0, 1)

	t.StatusSpeech = lipgloss.NewStyle().
		Foreground(p.Violet).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Foreground(p.TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	// Modals
	t.ModalCard = lipgloss.NewStyle().
		Background(p.SurfaceBright).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(1, 2)

	t.ModalTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ModalBody = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	t.ModalButton = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Background(p.Overlay).
		Padding(0, 2).
		MarginRight(1)

	t.ModalButtonHot = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Accent).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	t.DangerButton = lipgloss.NewStyle().
		Foreground(p.Rose).
		Background(p.Overlay).
		Padding(0, 2).
		MarginRight(1)

	t.DangerButtonHot = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Rose).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	// Settings
	t.SettingsSection = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 2).
		MarginBottom(1)

	t.SettingsSectionTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.SettingLabel = lipgloss.NewStyle().
		Foreground(p.TextSecondary)

	t.SettingValue = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	t.SettingValueFocus = lipgloss.NewStyle().
		Foreground(p.TextInverse).
		Background(p.Accent).
		Bold(true)

	t.SettingHint = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.SliderTrack = lipgloss.NewStyle().
		Foreground(p.Overlay)

	t.SliderFill = lipgloss.NewStyle().
		Foreground(p.Accent)

	// Memory
	t.MemoryActive = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.Emerald).
		PaddingLeft(1)

	t.MemoryPending = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.Amber).
		PaddingLeft(1)

	t.MemoryTier = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Bold(true)

	// Auth / onboarding
	t.AuthCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Accent).
		Padding(1, 4).
		Align(lipgloss.Center)

	t.AuthTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.AuthField = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Background(p.SurfaceBright).
		Padding(0, 1)

	t.AuthError = lipgloss.NewStyle().
		Foreground(p.Rose).
		Bold(true)

	// Visualization
	t.VizFrame = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.AccentDeep)

	// Generic states
	t.Success = lipgloss.NewStyle().Foreground(p.Emerald).Bold(true)
	t.Error = lipgloss.NewStyle().Foreground(p.Rose).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(p.Amber).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(p.TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 72 columns: transcript only
	LayoutMedium                   // 72-110 columns: sidebar collapses
	LayoutWide                     // > 110 columns: sidebar + transcript + viz
)

// GetLayoutMode returns the layout mode for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 72 {
		return LayoutNarrow
	}
	if t.Width < 110 {
		return LayoutMedium
	}
	return LayoutWide
}
