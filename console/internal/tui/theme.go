package tui

import (
	"github.com/charmbracelet/lipgloss"

	"cellbench/console/internal/livesync"
)

// Theme is the console's color palette, in ANSI 256-color codes for
// broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	Border       lipgloss.Color
	CursorBorder lipgloss.Color

	// Station state colors, one per livesync state value.
	StateEmpty        lipgloss.Color
	StateDockDetected lipgloss.Color
	StateReady        lipgloss.Color
	StateRunning      lipgloss.Color
	StateComplete     lipgloss.Color
	StateError        lipgloss.Color

	// Status bar badges.
	LiveBadge      lipgloss.Color
	ReconnectBadge lipgloss.Color
	InputBadge     lipgloss.Color

	NoticeText lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal scheme.
var DefaultTheme = Theme{
	NormalText: "252",
	FaintText:  "240",

	Border:       "238",
	CursorBorder: "39",

	StateEmpty:        "240",
	StateDockDetected: "179",
	StateReady:        "81",
	StateRunning:      "42",
	StateComplete:     "75",
	StateError:        "196",

	LiveBadge:      "28",
	ReconnectBadge: "124",
	InputBadge:     "208",

	NoticeText: "214",
}

// StateColor maps a station state to its display color. Unknown
// states render as normal text.
func (t Theme) StateColor(state string) lipgloss.Color {
	switch state {
	case livesync.StationEmpty:
		return t.StateEmpty
	case livesync.StationDockDetected:
		return t.StateDockDetected
	case livesync.StationReady:
		return t.StateReady
	case livesync.StationRunning:
		return t.StateRunning
	case livesync.StationComplete:
		return t.StateComplete
	case livesync.StationError:
		return t.StateError
	default:
		return t.NormalText
	}
}
