package dwire_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dwire "github.com/allbin/go-dwire"
	"github.com/allbin/go-dwire/internal/simdev"
)

func newSession(t *testing.T, tr dwire.Transport, enum dwire.Enumerator, linker dwire.Linker, opts ...dwire.Option) *dwire.Session {
	t.Helper()
	opts = append([]dwire.Option{dwire.WithTracer(dwire.NopTracer{})}, opts...)
	s, err := dwire.NewSession(tr, enum, linker, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSessionRequiresTransport(t *testing.T) {
	_, err := dwire.NewSession(nil, dwire.NewPortList(), nil)
	require.ErrorIs(t, err, dwire.ErrInvalidConfig)

	_, err = dwire.NewSession(simdev.NewBench(), nil, nil)
	require.ErrorIs(t, err, dwire.ErrInvalidConfig)

	_, err = dwire.NewSession(simdev.NewBench(), dwire.NewPortList(), nil, dwire.WithStepPercent(0))
	require.ErrorIs(t, err, dwire.ErrInvalidConfig)
}

func TestConnectFindsTarget(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))

	s := newSession(t, bench, dwire.NewPortList("sim0"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))

	require.Equal(t, "sim0", s.Port())
	require.Equal(t, 9518, s.BaudRate())
	require.NotNil(t, s.Conn())
	require.Equal(t, 1, bench.Live())

	lower, upper := 9600*98/100, 9600*102/100
	require.GreaterOrEqual(t, s.BaudRate(), lower)
	require.LessOrEqual(t, s.BaudRate(), upper)
}

func TestConnectStrictWindow(t *testing.T) {
	target := simdev.NewTarget(9600)
	target.Strict = true

	bench := simdev.NewBench()
	bench.Attach("sim0", target)

	s := newSession(t, bench, dwire.NewPortList("sim0"), nil, dwire.WithStartRate(9600))
	require.NoError(t, s.Connect(context.Background(), ""))
	require.True(t, target.InWindow(s.BaudRate()))

	// the validated connection still answers at the chosen rate
	sample, err := dwire.SampleBreakResponse(s.Conn(), 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, dwire.Response(dwire.ResponseByte), sample.Response)
}

func TestConnectSilentTarget(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", nil)

	s := newSession(t, bench, dwire.NewPortList("sim0"), nil)
	err := s.Connect(context.Background(), "")

	require.ErrorIs(t, err, dwire.ErrDeviceNotFound)
	require.Nil(t, s.Conn())
	require.Empty(t, s.Port())
	require.Zero(t, s.BaudRate())
	require.Equal(t, 0, bench.Live())
}

func TestConnectSkipsFailingPort(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("P0", nil)
	bench.Attach("P1", simdev.NewTarget(19200))

	s := newSession(t, bench, dwire.NewPortList("P0", "P1"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))

	require.Equal(t, "P1", s.Port())
	require.InDelta(t, 19200, s.BaudRate(), 19200*0.02)
	require.Equal(t, 1, bench.MaxLive())

	// P0 is fully closed before P1 is first opened
	events := bench.Events()
	lastP0Close, firstP1Open := -1, -1
	for i, e := range events {
		if e.Port == "P0" && e.Op == "close" {
			lastP0Close = i
		}
		if e.Port == "P1" && e.Op == "open" && firstP1Open < 0 {
			firstP1Open = i
		}
	}
	require.GreaterOrEqual(t, lastP0Close, 0)
	require.Greater(t, firstP1Open, lastP0Close)
}

func TestConnectSkipsFailingPortExactRate(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("P0", nil)
	bench.Attach("P1", simdev.NewTarget(19200))

	s := newSession(t, bench, dwire.NewPortList("P0", "P1"), nil, dwire.WithStartRate(19200))
	require.NoError(t, s.Connect(context.Background(), ""))

	require.Equal(t, "P1", s.Port())
	require.Equal(t, 19200, s.BaudRate())
}

func TestConnectSkipsFaultingPort(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("P0", simdev.NewTarget(9600))
	bench.Fail("P0", dwire.ErrDeviceBusy)
	bench.Attach("P1", simdev.NewTarget(9600))

	s := newSession(t, bench, dwire.NewPortList("P0", "P1"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))
	require.Equal(t, "P1", s.Port())
}

func TestConnectNamedPort(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", nil)
	bench.Attach("sim1", simdev.NewTarget(9600))

	// the enumerator is never consulted for a named port
	s := newSession(t, bench, dwire.NewPortList("sim1"), nil)
	err := s.Connect(context.Background(), "sim0")
	require.ErrorIs(t, err, dwire.ErrNamedPortUnreachable)
	require.Contains(t, err.Error(), "sim0")
	require.Nil(t, s.Conn())
	require.Equal(t, 0, bench.Live())

	require.NoError(t, s.Connect(context.Background(), "sim1"))
	require.Equal(t, "sim1", s.Port())
}

func TestConnectNamedPortMissing(t *testing.T) {
	bench := simdev.NewBench()

	s := newSession(t, bench, dwire.NewPortList(), nil)
	err := s.Connect(context.Background(), "nope")
	require.ErrorIs(t, err, dwire.ErrNamedPortUnreachable)
}

func TestConnectNoCandidates(t *testing.T) {
	s := newSession(t, simdev.NewBench(), dwire.NewPortList(), nil)
	require.ErrorIs(t, s.Connect(context.Background(), ""), dwire.ErrDeviceNotFound)
}

func TestConnectLinkErrorVerbatim(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))
	bench.Attach("sim1", simdev.NewTarget(9600))

	errHandshake := errors.New("target did not sign on")
	var linked []string
	linker := dwire.LinkFunc(func(conn dwire.Conn, baudRate int) error {
		require.NotNil(t, conn)
		require.Equal(t, 9518, baudRate)
		linked = append(linked, "link")
		return errHandshake
	})

	s := newSession(t, bench, dwire.NewPortList("sim0", "sim1"), linker)
	err := s.Connect(context.Background(), "")

	require.Same(t, errHandshake, err)
	require.Len(t, linked, 1, "a link failure must not move on to the next port")
	require.Nil(t, s.Conn())
	require.Equal(t, 0, bench.Live())
	require.Zero(t, s.BarrierDepth())
}

func TestConnectLinkSuccess(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))

	var got int
	linker := dwire.LinkFunc(func(conn dwire.Conn, baudRate int) error {
		got = baudRate
		return nil
	})

	s := newSession(t, bench, dwire.NewPortList("sim0"), linker)
	require.NoError(t, s.Connect(context.Background(), ""))
	require.Equal(t, s.BaudRate(), got)
}

func TestConnectCanceled(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSession(t, bench, dwire.NewPortList("sim0"), nil)
	require.ErrorIs(t, s.Connect(ctx, ""), context.Canceled)
	require.Empty(t, bench.Events())
}

func TestReset(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))
	bench.Attach("sim1", simdev.NewTarget(19200))

	s := newSession(t, bench, dwire.NewPortList("sim0", "sim1"), nil)
	ctx := context.Background()

	require.NoError(t, s.Connect(ctx, "sim1"))
	require.Equal(t, "sim1", s.Port())

	// reset forgets the named port and starts discovery over
	require.NoError(t, s.Reset(ctx))
	require.Equal(t, "sim0", s.Port())
	require.Equal(t, 9518, s.BaudRate())
	require.Equal(t, 1, bench.Live())
}

func TestClose(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))

	s := newSession(t, bench, dwire.NewPortList("sim0"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))

	require.NoError(t, s.Close())
	require.Nil(t, s.Conn())
	require.Empty(t, s.Port())
	require.Zero(t, s.BaudRate())
	require.Equal(t, 0, bench.Live())

	// closing a disconnected session is a no-op
	require.NoError(t, s.Close())
}

// panicky wraps a bench and panics when opening one port
type panicky struct {
	*simdev.Bench
	port string
}

func (p panicky) Open(name string, baudRate int) (dwire.Conn, error) {
	if name == p.port {
		panic("driver blew up")
	}
	return p.Bench.Open(name, baudRate)
}

func TestConnectRecoversTransportPanic(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("P0", simdev.NewTarget(9600))
	bench.Attach("P1", simdev.NewTarget(9600))

	s := newSession(t, panicky{Bench: bench, port: "P0"}, dwire.NewPortList("P0", "P1"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))
	require.Equal(t, "P1", s.Port())

	err := s.Connect(context.Background(), "P0")
	require.ErrorIs(t, err, dwire.ErrNamedPortUnreachable)
	require.Equal(t, 0, bench.Live())
	require.Zero(t, s.BarrierDepth())
}

func TestConnectLinkerPanicPropagates(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))

	linker := dwire.LinkFunc(func(dwire.Conn, int) error {
		panic("linker bug")
	})

	s := newSession(t, bench, dwire.NewPortList("sim0"), linker)
	require.PanicsWithValue(t, "linker bug", func() {
		_ = s.Connect(context.Background(), "")
	})
	require.Nil(t, s.Conn())
	require.Equal(t, 0, bench.Live())
	require.Zero(t, s.BarrierDepth())
}

func TestConnectSkipsPortFailingValidation(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))
	bench.Attach("sim1", simdev.NewTarget(9600))
	tr := &midpointTransport{Bench: bench, port: "sim0", rate: 9518}

	s := newSession(t, tr, dwire.NewPortList("sim0", "sim1"), nil)
	require.NoError(t, s.Connect(context.Background(), ""))

	require.Equal(t, "sim1", s.Port())
	require.Equal(t, 9518, s.BaudRate())
	require.Equal(t, 1, bench.Live())
	require.Equal(t, 1, bench.MaxLive())
	require.Equal(t, 0, s.BarrierDepth())

	// sim0 reached validation and was closed before sim1 was tried
	events := bench.Events()
	lastSim0, firstSim1 := -1, -1
	for i, e := range events {
		if e.Port == "sim0" {
			lastSim0 = i
		}
		if e.Port == "sim1" && firstSim1 < 0 {
			firstSim1 = i
		}
	}
	require.Equal(t, simdev.Event{Op: "close", Port: "sim0", BaudRate: 9518}, events[lastSim0])
	require.Greater(t, firstSim1, lastSim0)
}

func TestConnectNamedPortFailingValidation(t *testing.T) {
	bench := simdev.NewBench()
	bench.Attach("sim0", simdev.NewTarget(9600))
	tr := &midpointTransport{Bench: bench, port: "sim0", rate: 9518}

	s := newSession(t, tr, dwire.NewPortList(), nil)
	err := s.Connect(context.Background(), "sim0")
	require.ErrorIs(t, err, dwire.ErrNamedPortUnreachable)
	require.Nil(t, s.Conn())
	require.Equal(t, 0, bench.Live())
}
