package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha colors used by the search view
var (
	Base     = lipgloss.Color("#1e1e2e") // Dark background
	Surface0 = lipgloss.Color("#313244") // Status bar background
	Surface1 = lipgloss.Color("#45475a") // Borders
	Surface2 = lipgloss.Color("#585b70") // Dividers
	Overlay0 = lipgloss.Color("#6c7086") // Unanswered trials
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4") // Main text

	Blue   = lipgloss.Color("#89b4fa") // Descent
	Teal   = lipgloss.Color("#94e2d5") // Bisection
	Green  = lipgloss.Color("#a6e3a1") // Exact match, connected
	Yellow = lipgloss.Color("#f9e2af") // Searching
	Peach  = lipgloss.Color("#fab387") // Estimates
	Red    = lipgloss.Color("#f38ba8") // Failure
	Mauve  = lipgloss.Color("#cba6f7") // Port name
)
