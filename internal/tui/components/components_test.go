package components

import (
	"testing"
	"time"

	dwire "github.com/allbin/go-dwire"
	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/require"
)

func trial(rate int, resp dwire.Response, factor int, note string) dwire.TrialEvent {
	return dwire.TrialEvent{
		Attempt:  dwire.Attempt{Port: "/dev/ttyUSB0", BaudRate: rate, BreakLength: dwire.BreakLength(rate)},
		Response: resp,
		Factor:   factor,
		Note:     note,
	}
}

func TestTrialRow(t *testing.T) {
	tests := []struct {
		name  string
		event dwire.TrialEvent
		want  table.Row
	}{
		{
			name:  "unsupported rate",
			event: trial(40000, dwire.NoResponse, 0, dwire.NoteUnsupported),
			want:  table.Row{"1", "/dev/ttyUSB0", "40000", "2ms", "-", "-", dwire.NoteUnsupported},
		},
		{
			name:  "no response",
			event: trial(9600, dwire.NoResponse, 0, dwire.NoteNoResponse),
			want:  table.Row{"1", "/dev/ttyUSB0", "9600", "10ms", "-", "0", dwire.NoteNoResponse},
		},
		{
			name:  "estimate",
			event: trial(12500, dwire.Response(0x4B), 140, ""),
			want:  table.Row{"1", "/dev/ttyUSB0", "12500", "8ms", "01001011", "140%", "estimate"},
		},
		{
			name:  "expected byte",
			event: trial(9615, dwire.Response(0x55), 100, dwire.NoteExpected),
			want:  table.Row{"1", "/dev/ttyUSB0", "9615", "10ms", "01010101", "100%", dwire.NoteExpected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TrialRow(1, tt.event))
		})
	}
}

func TestTrialTableFollow(t *testing.T) {
	tt := NewTrialTable(80, 10)
	for i := 0; i < 3; i++ {
		tt.AddTrial(trial(9600, dwire.NoResponse, 0, dwire.NoteNoResponse))
	}
	require.Equal(t, 3, tt.Len())
	require.Equal(t, 2, tt.table.Cursor())

	// Scrolling up stops following new trials
	tt.MoveUp()
	tt.AddTrial(trial(9600, dwire.NoResponse, 0, dwire.NoteNoResponse))
	require.Equal(t, 1, tt.table.Cursor())

	tt.GotoBottom()
	require.Equal(t, 3, tt.table.Cursor())
	tt.AddTrial(trial(9600, dwire.NoResponse, 0, dwire.NoteNoResponse))
	require.Equal(t, 4, tt.table.Cursor())

	tt.Clear()
	require.Zero(t, tt.Len())
	require.Empty(t, tt.table.Rows())
}

func TestStartBreakRow(t *testing.T) {
	e := trial(40000, dwire.Response(0x78), 330, "")
	e.Attempt.BreakLength = 50 * time.Millisecond
	row := TrialRow(7, e)
	require.Equal(t, "7", row[0])
	require.Equal(t, "50ms", row[3])
	require.Equal(t, "330%", row[5])
}

func TestStatusBarTitle(t *testing.T) {
	sb := NewStatusBar("dwire connect", "")
	sb.SetWidth(120)
	require.Contains(t, sb.View("*", "12:00:00"), "dwire connect")
	require.Contains(t, sb.View("*", "12:00:00"), "any adapter")

	sb.SetConnected("/dev/ttyUSB0", 9518)
	view := sb.View("*", "12:00:00")
	require.Contains(t, view, "CONNECTED")
	require.Contains(t, view, "9518 baud")
	require.Equal(t, "Connected", sb.Status())
}
