package components

import (
	"fmt"
	"strconv"

	dwire "github.com/allbin/go-dwire"
	"github.com/allbin/go-dwire/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TrialTable lists the trials of a search, newest last
type TrialTable struct {
	table  table.Model
	trials []dwire.TrialEvent
	follow bool
}

func NewTrialTable(width, height int) *TrialTable {
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(trialColumns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	return &TrialTable{table: t, follow: true}
}

func trialColumns(width int) []table.Column {
	// Fixed columns; the note takes what is left
	const fixed = 4 + 12 + 8 + 10 + 10 + 8
	noteWidth := width - fixed - 14
	if noteWidth < 16 {
		noteWidth = 16
	}

	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Port", Width: 12},
		{Title: "Baud", Width: 8},
		{Title: "Break", Width: 10},
		{Title: "Received", Width: 10},
		{Title: "Factor", Width: 8},
		{Title: "Note", Width: noteWidth},
	}
}

func (tt *TrialTable) SetSize(width, height int) {
	tt.table.SetColumns(trialColumns(width))
	tt.table.SetHeight(height)
	tt.table.SetWidth(width)
	tt.table.UpdateViewport()
}

// AddTrial appends e and, unless the user scrolled away, keeps it in view
func (tt *TrialTable) AddTrial(e dwire.TrialEvent) {
	tt.trials = append(tt.trials, e)

	rows := tt.table.Rows()
	rows = append(rows, TrialRow(len(tt.trials), e))
	tt.table.SetRows(rows)

	if tt.follow {
		tt.table.GotoBottom()
	}
}

func (tt *TrialTable) Clear() {
	tt.trials = nil
	tt.table.SetRows(nil)
	tt.follow = true
}

func (tt *TrialTable) Len() int {
	return len(tt.trials)
}

func (tt *TrialTable) MoveUp() {
	tt.follow = false
	tt.table.MoveUp(1)
}

func (tt *TrialTable) MoveDown() {
	tt.table.MoveDown(1)
	tt.follow = tt.table.Cursor() >= len(tt.trials)-1
}

func (tt *TrialTable) GotoTop() {
	tt.follow = false
	tt.table.GotoTop()
}

func (tt *TrialTable) GotoBottom() {
	tt.follow = true
	tt.table.GotoBottom()
}

func (tt *TrialTable) View() string {
	return tt.table.View()
}

// TrialRow renders one trial as table cells
func TrialRow(n int, e dwire.TrialEvent) table.Row {
	received := "-"
	factor := "-"
	note := e.Note

	switch {
	case e.Note == dwire.NoteUnsupported:
	case e.Response == dwire.NoResponse:
		factor = "0"
	default:
		received = e.Response.String()
		factor = fmt.Sprintf("%d%%", e.Factor)
		if note == "" {
			note = "estimate"
		}
	}

	return table.Row{
		strconv.Itoa(n),
		e.Attempt.Port,
		strconv.Itoa(e.Attempt.BaudRate),
		fmt.Sprintf("%dms", e.Attempt.BreakLength.Milliseconds()),
		received,
		factor,
		note,
	}
}
