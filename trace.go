package dwire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Response is a byte sampled after a break, or NoResponse
type Response int

// NoResponse means the read timed out before an interpretable byte arrived
const NoResponse Response = -1

// Byte returns the sampled byte and whether there was one
func (r Response) Byte() (byte, bool) {
	if r < 0 {
		return 0, false
	}
	return byte(r), true
}

// String renders the response as eight bits, most significant first
func (r Response) String() string {
	return FormatBits(r)
}

// FormatBits renders a response as a bit string, or its value when negative
func FormatBits(r Response) string {
	if r < 0 {
		return strconv.Itoa(int(r))
	}
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		if (r>>i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Trial notes
const (
	NoteUnsupported = "cannot set this baud rate"
	NoteNoResponse  = "no response"
	NoteExpected    = "expected result"
	NoteNonZero     = "byte read after break is non-zero"
)

// TrialEvent describes one completed trial
type TrialEvent struct {
	Attempt  Attempt
	Skipped  string // filler consumed after the break, one char per byte
	Response Response
	Factor   int
	Note     string
}

func (e TrialEvent) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trying %s, baud rate %5d, breaklen %4d", e.Attempt.Port, e.Attempt.BaudRate, e.Attempt.BreakLength.Milliseconds())
	if e.Note == NoteUnsupported {
		sb.WriteString(". Cannot set this baud rate.")
		return sb.String()
	}
	fmt.Fprintf(&sb, ", skipping [%s]", e.Skipped)
	if e.Response == NoResponse {
		sb.WriteString(", no response.")
		return sb.String()
	}
	fmt.Fprintf(&sb, ", received %s", e.Response)
	if e.Factor == 100 {
		sb.WriteString(": expected result.")
	} else {
		fmt.Fprintf(&sb, ", factor %d%%", e.Factor)
	}
	return sb.String()
}

// Tracer receives a human readable account of a search. It is never
// required for correctness.
type Tracer interface {
	Trial(e TrialEvent)
	Phase(name string)
	Chosen(baudRate int)
}

// NopTracer discards everything
type NopTracer struct{}

func (NopTracer) Trial(TrialEvent) {}
func (NopTracer) Phase(string)     {}
func (NopTracer) Chosen(int)       {}

// LogTracer writes trials at debug level and milestones at info level
type LogTracer struct {
	Logger zerolog.Logger
}

func (t LogTracer) Trial(e TrialEvent) {
	ev := t.Logger.Debug().
		Str("port", e.Attempt.Port).
		Int("baud", e.Attempt.BaudRate).
		Int64("break_ms", e.Attempt.BreakLength.Milliseconds()).
		Str("skipped", e.Skipped).
		Str("response", e.Response.String()).
		Int("factor", e.Factor)
	if e.Note != "" {
		ev = ev.Str("note", e.Note)
	}
	ev.Msg("trial")
}

func (t LogTracer) Phase(name string) {
	t.Logger.Debug().Str("phase", name).Msg("search phase")
}

func (t LogTracer) Chosen(baudRate int) {
	t.Logger.Info().Int("baud", baudRate).Msg("chosen baud rate")
}

type multiTracer []Tracer

// MultiTracer fans events out to every tracer in order
func MultiTracer(tracers ...Tracer) Tracer {
	return multiTracer(tracers)
}

func (m multiTracer) Trial(e TrialEvent) {
	for _, t := range m {
		t.Trial(e)
	}
}

func (m multiTracer) Phase(name string) {
	for _, t := range m {
		t.Phase(name)
	}
}

func (m multiTracer) Chosen(baudRate int) {
	for _, t := range m {
		t.Chosen(baudRate)
	}
}
