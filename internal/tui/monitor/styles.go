// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     monitor
// Description: Styles for the monitor TUI
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/signspeak/internal/companion/activity"
)

// Color Palette - shared with the other terminal tools
var (
	ColorPrimary   = lipgloss.Color("#8B5CF6") // Violet
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Emerald
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorDimmed    = lipgloss.Color("#374151") // Dark Gray

	ColorBgPanel = lipgloss.Color("#1E293B") // Slate 800

	ColorText      = lipgloss.Color("#F8FAFC") // Slate 50
	ColorTextMuted = lipgloss.Color("#94A3B8") // Slate 400
	ColorTextDim   = lipgloss.Color("#64748B") // Slate 500
)

var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TitlePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2)
)

// Gesture panel
var (
	GesturePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorSecondary).
				Padding(1, 2).
				Align(lipgloss.Center)

	GestureStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	SentenceStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Italic(true)

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(ColorTextMuted)
)

// Log panel
var (
	LogPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimmed).
			Padding(0, 1)

	LogTimestampStyle = lipgloss.NewStyle().
				Foreground(ColorTextDim)

	LogInfoStyle    = lipgloss.NewStyle().Foreground(ColorText)
	LogSuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	LogErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	LogGestureStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
)

// Status styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)

	StatusOnlineStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	StatusOfflineStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StatusDemoStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	FlagOnStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	FlagOffStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Help styles
var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Logo
const Logo = "SignSpeak Monitor"

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(description)
}

// RenderFlag renders an on/off setting
func RenderFlag(name string, on bool) string {
	if on {
		return FlagOnStyle.Render(name + ":on")
	}
	return FlagOffStyle.Render(name + ":off")
}

// logStyle picks the style for an activity entry
func logStyle(kind activity.Kind) lipgloss.Style {
	switch kind {
	case activity.KindSuccess:
		return LogSuccessStyle
	case activity.KindError:
		return LogErrorStyle
	case activity.KindGesture:
		return LogGestureStyle
	default:
		return LogInfoStyle
	}
}
