package dwire

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFormatBits(t *testing.T) {
	require.Equal(t, "01010101", FormatBits(0x55))
	require.Equal(t, "10000000", FormatBits(0x80))
	require.Equal(t, "00000000", FormatBits(0))
	require.Equal(t, "-1", FormatBits(NoResponse))
	require.Equal(t, "01111000", Response(0x78).String())
}

func TestResponseByte(t *testing.T) {
	b, ok := Response(0x4B).Byte()
	require.True(t, ok)
	require.Equal(t, byte(0x4B), b)

	_, ok = NoResponse.Byte()
	require.False(t, ok)
}

func TestTrialEventString(t *testing.T) {
	a := Attempt{Port: "/dev/ttyUSB0", BaudRate: 12500, BreakLength: 8 * time.Millisecond}

	tests := []struct {
		name  string
		event TrialEvent
		want  string
	}{
		{
			"unsupported",
			TrialEvent{Attempt: a, Response: NoResponse, Note: NoteUnsupported},
			"Trying /dev/ttyUSB0, baud rate 12500, breaklen    8. Cannot set this baud rate.",
		},
		{
			"no response",
			TrialEvent{Attempt: a, Skipped: "0", Response: NoResponse, Note: NoteNoResponse},
			"Trying /dev/ttyUSB0, baud rate 12500, breaklen    8, skipping [0], no response.",
		},
		{
			"estimate",
			TrialEvent{Attempt: a, Skipped: "0F", Response: 0x4B, Factor: 140},
			"Trying /dev/ttyUSB0, baud rate 12500, breaklen    8, skipping [0F], received 01001011, factor 140%",
		},
		{
			"match",
			TrialEvent{Attempt: a, Skipped: "0F", Response: 0x55, Factor: 100, Note: NoteExpected},
			"Trying /dev/ttyUSB0, baud rate 12500, breaklen    8, skipping [0F], received 01010101: expected result.",
		},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.event.String(), tt.name)
	}
}

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := LogTracer{Logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	tracer.Trial(TrialEvent{
		Attempt:  Attempt{Port: "p", BaudRate: 9615, BreakLength: 10 * time.Millisecond},
		Skipped:  "0F",
		Response: 0x55,
		Factor:   100,
		Note:     NoteExpected,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "trial", entry["message"])
	require.Equal(t, "p", entry["port"])
	require.EqualValues(t, 9615, entry["baud"])
	require.EqualValues(t, 10, entry["break_ms"])
	require.Equal(t, "01010101", entry["response"])
	require.Equal(t, NoteExpected, entry["note"])

	buf.Reset()
	tracer.Chosen(9518)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "info", entry["level"])
	require.EqualValues(t, 9518, entry["baud"])
}

type countingTracer struct {
	trials, phases, chosen int
}

func (c *countingTracer) Trial(TrialEvent) { c.trials++ }
func (c *countingTracer) Phase(string)     { c.phases++ }
func (c *countingTracer) Chosen(int)       { c.chosen++ }

func TestMultiTracer(t *testing.T) {
	a, b := &countingTracer{}, &countingTracer{}
	m := MultiTracer(a, NopTracer{}, b)

	m.Trial(TrialEvent{})
	m.Phase("descent")
	m.Chosen(1)

	require.Equal(t, countingTracer{1, 1, 1}, *a)
	require.Equal(t, countingTracer{1, 1, 1}, *b)
}
