// Package simdev simulates debugWIRE targets behind USB serial adapters.
//
// A Bench is a dwire.Transport whose ports are attached Targets. After a
// break a Target answers 0x55 at its own baud rate; the bench reports what
// a UART running at the trial rate would have received, including the
// filler bytes the break and the idle line leave in the input queue.
package simdev

import (
	"fmt"
	"sort"
	"sync"
	"time"

	dwire "github.com/allbin/go-dwire"
)

// Target models one debugWIRE device
type Target struct {
	BaudRate     int  // true rate of the device clock
	TolerancePct int  // rates within this many percent receive 0x55 exactly
	BreakZeros   int  // 0x00 bytes left by the break
	IdleFFs      int  // 0xFF bytes left when the line goes high
	Silent       bool // never answers a break
	// Strict makes the target answer only inside its tolerance window.
	// Otherwise rates outside it receive the mis-sampled waveform.
	Strict bool
}

// NewTarget returns a target at baudRate with a 2% window and the filler
// bytes an FT232 typically reports after a break.
func NewTarget(baudRate int) *Target {
	return &Target{
		BaudRate:     baudRate,
		TolerancePct: 2,
		BreakZeros:   1,
		IdleFFs:      1,
	}
}

// InWindow reports whether rate receives the response byte exactly
func (t *Target) InWindow(rate int) bool {
	diff := rate - t.BaudRate
	if diff < 0 {
		diff = -diff
	}
	return diff*100 <= t.BaudRate*t.TolerancePct
}

// Response returns the byte received at rate after a break, if any
func (t *Target) Response(rate int) (byte, bool) {
	if t.Silent || t.BaudRate <= 0 {
		return 0, false
	}
	if t.InWindow(rate) {
		return dwire.ResponseByte, true
	}
	if t.Strict {
		return 0, false
	}

	b := Receive(dwire.ResponseByte, t.BaudRate, rate)
	if b == dwire.ResponseByte {
		// Decodes by luck but fails the stop bit; the adapter drops it.
		return 0, false
	}
	return b, true
}

// Receive returns the byte a UART sampling at rate reads when sent is
// transmitted at baud. Each data bit is sampled in the middle of its
// period, timed from the falling edge of the start bit.
func Receive(sent byte, baud, rate int) byte {
	var b byte
	for i := 0; i < 8; i++ {
		// device bit index at receiver time (i+1.5)/rate
		idx := (2*i + 3) * baud / (2 * rate)
		if lineLevel(sent, idx) == 1 {
			b |= 1 << i
		}
	}
	return b
}

// lineLevel is the line state during device bit idx of a frame: start bit,
// eight data bits LSB first, then stop bit and idle.
func lineLevel(sent byte, idx int) int {
	switch {
	case idx <= 0:
		return 0
	case idx <= 8:
		return int(sent>>(idx-1)) & 1
	default:
		return 1
	}
}

// Event records an open, break or close on the bench
type Event struct {
	Op          string
	Port        string
	BaudRate    int
	BreakLength time.Duration
}

// Bench is a dwire.Transport over simulated ports
type Bench struct {
	// MinRate and MaxRate bound the rates the adapter accepts; 0 is unbounded
	MinRate int
	MaxRate int

	mu      sync.Mutex
	targets map[string]*Target
	faults  map[string]error
	events  []Event
	live    int
	maxLive int
}

// Ensure Bench implements dwire.Transport at compile time
var _ dwire.Transport = (*Bench)(nil)

// NewBench returns an empty bench
func NewBench() *Bench {
	return &Bench{
		targets: make(map[string]*Target),
		faults:  make(map[string]error),
	}
}

// Attach connects t to port. A nil target leaves an adapter with nothing
// behind it.
func (b *Bench) Attach(port string, t *Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t == nil {
		t = &Target{Silent: true, BreakZeros: 1}
	}
	b.targets[port] = t
}

// Fail makes every open of port fail with err
func (b *Bench) Fail(port string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[port] = err
}

// Ports returns the attached port names in sorted order
func (b *Bench) Ports() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.targets))
	for name := range b.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Events returns a copy of the open/break/close history
func (b *Bench) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Live returns the number of connections currently open
func (b *Bench) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// MaxLive returns the highest number of simultaneously open connections
func (b *Bench) MaxLive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxLive
}

// Open implements dwire.Transport
func (b *Bench) Open(name string, baudRate int) (dwire.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.faults[name]; ok {
		return nil, err
	}
	t, ok := b.targets[name]
	if !ok {
		return nil, fmt.Errorf("failed to open %s: %w", name, dwire.ErrPortNotFound)
	}
	if baudRate <= 0 || (b.MinRate > 0 && baudRate < b.MinRate) || (b.MaxRate > 0 && baudRate > b.MaxRate) {
		return nil, fmt.Errorf("%d baud: %w", baudRate, dwire.ErrUnsupportedRate)
	}

	b.events = append(b.events, Event{Op: "open", Port: name, BaudRate: baudRate})
	b.live++
	if b.live > b.maxLive {
		b.maxLive = b.live
	}

	return &conn{bench: b, port: name, baudRate: baudRate, target: t}, nil
}

type conn struct {
	bench    *Bench
	port     string
	baudRate int
	target   *Target
	input    []byte
	closed   bool
}

func (c *conn) SendBreak(d time.Duration) error {
	c.bench.mu.Lock()
	defer c.bench.mu.Unlock()

	if c.closed {
		return dwire.ErrPortClosed
	}
	c.bench.events = append(c.bench.events, Event{Op: "break", Port: c.port, BaudRate: c.baudRate, BreakLength: d})

	c.input = c.input[:0]
	for i := 0; i < c.target.BreakZeros; i++ {
		c.input = append(c.input, 0x00)
	}
	if b, ok := c.target.Response(c.baudRate); ok {
		for i := 0; i < c.target.IdleFFs; i++ {
			c.input = append(c.input, 0xFF)
		}
		c.input = append(c.input, b)
	}
	return nil
}

func (c *conn) ReadByte() (byte, error) {
	c.bench.mu.Lock()
	defer c.bench.mu.Unlock()

	if c.closed {
		return 0, dwire.ErrPortClosed
	}
	if len(c.input) == 0 {
		return 0, dwire.ErrReadTimeout
	}
	b := c.input[0]
	c.input = c.input[1:]
	return b, nil
}

func (c *conn) Close() error {
	c.bench.mu.Lock()
	defer c.bench.mu.Unlock()

	if c.closed {
		return dwire.ErrPortClosed
	}
	c.closed = true
	c.bench.live--
	c.bench.events = append(c.bench.events, Event{Op: "close", Port: c.port, BaudRate: c.baudRate})
	return nil
}
