// Package theme provides the Lip Gloss color palette and reusable styles
// for the interactive client. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sender colors.
var (
	ColorClient = lipgloss.Color("#3b82f6")
	ColorServer = lipgloss.Color("#22c55e")
	ColorNotice = lipgloss.Color("#d97706")
)

// Verb colors.
var (
	ColorTime    = lipgloss.Color("#06b6d4")
	ColorName    = lipgloss.Color("#a855f7")
	ColorInfo    = lipgloss.Color("#f59e0b")
	ColorExit    = lipgloss.Color("#dc2626")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// VerbColor returns the color for the first word of a command.
func VerbColor(cmd string) lipgloss.Color {
	verb, _, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	switch strings.ToUpper(verb) {
	case "TIME":
		return ColorTime
	case "NAME":
		return ColorName
	case "INFO":
		return ColorInfo
	case "EXIT":
		return ColorExit
	default:
		return ColorDefault
	}
}

// SenderBadge returns the colored transcript prefix for a side of the
// conversation.
func SenderBadge(sender string) string {
	switch sender {
	case "CLIENT":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorClient).Render("[CLIENT]")
	case "SERVER":
		return lipgloss.NewStyle().Bold(true).Foreground(ColorServer).Render("[SERVER]")
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorNotice).Render("[" + sender + "]")
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)
)
