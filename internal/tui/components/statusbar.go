package components

import (
	"fmt"
	"strings"

	"github.com/allbin/go-dwire/internal/tui/colors"
	"github.com/allbin/go-dwire/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	title    string
	portPath string
	phase    string
	baudRate int
	trials   int
	status   string
	err      error
	width    int
}

func NewStatusBar(title, portPath string) *StatusBar {
	return &StatusBar{
		title:    title,
		portPath: portPath,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetPort shows the port currently being searched
func (sb *StatusBar) SetPort(portPath string) {
	sb.portPath = portPath
}

func (sb *StatusBar) SetPhase(phase string) {
	sb.phase = phase
}

func (sb *StatusBar) SetTrials(n int) {
	sb.trials = n
}

func (sb *StatusBar) SetSearching() {
	sb.status = "Searching..."
	sb.phase = "descent"
	sb.baudRate = 0
	sb.err = nil
}

func (sb *StatusBar) SetConnected(portPath string, baudRate int) {
	sb.status = "Connected"
	sb.phase = "connected"
	sb.portPath = portPath
	sb.baudRate = baudRate
	sb.err = nil
}

func (sb *StatusBar) SetFailed(err error) {
	sb.status = fmt.Sprintf("Search failed: %v", err)
	sb.phase = "failed"
	sb.baudRate = 0
	sb.err = err
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func (sb *StatusBar) statusType() styles.StatusType {
	switch {
	case sb.err != nil:
		return styles.StatusFailed
	case sb.baudRate > 0:
		return styles.StatusConnected
	default:
		return styles.StatusSearching
	}
}

// View renders the status bar. spinner is shown while searching.
func (sb *StatusBar) View(spinner, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	title := styles.TitleStyle.Render(sb.title)

	// Section 1: Phase badge
	phase := sb.phase
	if phase == "" {
		phase = "idle"
	}
	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(styles.PhaseColor(sb.phase)).
		Bold(true).
		Padding(0, 1)
	mode := modeStyle.Render(strings.ToUpper(phase))

	// Section 2: Port path
	portStyle := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1)
	portPath := sb.portPath
	if portPath == "" {
		portPath = "any adapter"
	}
	port := portStyle.Render(portPath)

	// Section 3: Single character state indicator
	status := sb.statusType()
	var indicator string
	switch status {
	case styles.StatusFailed:
		indicator = "✗"
	case styles.StatusConnected:
		indicator = "●"
	default:
		indicator = spinner
	}
	connectionIndicator := styles.GetStatusStyle(status).Render(indicator)

	// Section 4: Rate and trial count
	info := "⚡ searching"
	if sb.baudRate > 0 {
		info = fmt.Sprintf("⚡ %d baud", sb.baudRate)
	}
	info = fmt.Sprintf("%s, %d trials", info, sb.trials)
	infoStyle := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1)
	details := infoStyle.Render(info)

	// Section 5: Timestamp
	timeStyle := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1)
	clock := timeStyle.Render(timestamp)

	dividerStyle := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1)
	divider := dividerStyle.Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, title, mode, port, connectionIndicator, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide)
	return statusBarStyle.Render(content)
}
