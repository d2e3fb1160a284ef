package styles

import (
	"github.com/allbin/go-dwire/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Status styles
	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	StatusFailedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusSearchingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	// Trial row styles
	MatchStyle      = lipgloss.NewStyle().Foreground(colors.Green)
	EstimateStyle   = lipgloss.NewStyle().Foreground(colors.Peach)
	NoResponseStyle = lipgloss.NewStyle().Foreground(colors.Overlay0)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)
)

type StatusType int

const (
	StatusSearching StatusType = iota
	StatusConnected
	StatusFailed
)

func GetStatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusConnected:
		return StatusConnectedStyle
	case StatusSearching:
		return StatusSearchingStyle
	default:
		return StatusFailedStyle
	}
}

// PhaseColor returns the accent used for a search phase
func PhaseColor(phase string) lipgloss.Color {
	switch phase {
	case "descent":
		return colors.Blue
	case "upper bound", "lower bound":
		return colors.Teal
	case "connected":
		return colors.Green
	case "failed":
		return colors.Red
	default:
		return colors.Yellow
	}
}

// FactorStyle colors a trial factor: exact match, estimate or silence
func FactorStyle(factor int) lipgloss.Style {
	switch {
	case factor == 100:
		return MatchStyle
	case factor > 100:
		return EstimateStyle
	default:
		return NoResponseStyle
	}
}
