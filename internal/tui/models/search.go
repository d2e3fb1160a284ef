package models

import (
	"context"
	"sync"

	dwire "github.com/allbin/go-dwire"
	tea "github.com/charmbracelet/bubbletea"
)

// TrialMsg carries one completed trial
type TrialMsg struct {
	Event dwire.TrialEvent
}

// PhaseMsg announces the next search phase
type PhaseMsg struct {
	Phase string
}

// ChosenMsg carries the rate picked for validation
type ChosenMsg struct {
	BaudRate int
}

// ResultMsg ends a connect: either a validated port and rate, or an error
type ResultMsg struct {
	Port     string
	BaudRate int
	Err      error
}

// Tracer forwards search progress to a running program
type Tracer struct {
	Send func(tea.Msg)
}

var _ dwire.Tracer = Tracer{}

func (t Tracer) Trial(e dwire.TrialEvent) { t.Send(TrialMsg{Event: e}) }
func (t Tracer) Phase(name string)        { t.Send(PhaseMsg{Phase: name}) }
func (t Tracer) Chosen(baudRate int)      { t.Send(ChosenMsg{BaudRate: baudRate}) }

// SearchModel holds the session behind the connect view
type SearchModel struct {
	session *dwire.Session
	port    string

	// State
	searching bool
	connected bool
	connPort  string
	baudRate  int
	err       error
	ready     bool

	// Cancellation and synchronization
	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.Mutex
}

func NewSearchModel(session *dwire.Session, port string) *SearchModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &SearchModel{
		session: session,
		port:    port,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect runs a search for the requested port. It blocks, so callers
// run it from a tea.Cmd or goroutine.
func (m *SearchModel) Connect() ResultMsg {
	return m.run(func(ctx context.Context) error {
		return m.session.Connect(ctx, m.port)
	})
}

// Reset drops the connection and searches every candidate again
func (m *SearchModel) Reset() ResultMsg {
	return m.run(m.session.Reset)
}

func (m *SearchModel) run(search func(context.Context) error) ResultMsg {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := search(m.ctx); err != nil {
		return ResultMsg{Err: err}
	}
	return ResultMsg{Port: m.session.Port(), BaudRate: m.session.BaudRate()}
}

func (m *SearchModel) IsSearching() bool {
	return m.searching
}

func (m *SearchModel) SetSearching(searching bool) {
	m.searching = searching
}

func (m *SearchModel) IsConnected() bool {
	return m.connected
}

// SetResult records the outcome of a search
func (m *SearchModel) SetResult(msg ResultMsg) {
	m.searching = false
	m.connected = msg.Err == nil
	m.connPort = msg.Port
	m.baudRate = msg.BaudRate
	m.err = msg.Err
}

// ConnectedPort returns the port of the last successful search
func (m *SearchModel) ConnectedPort() string {
	return m.connPort
}

func (m *SearchModel) BaudRate() int {
	return m.baudRate
}

func (m *SearchModel) GetError() error {
	return m.err
}

func (m *SearchModel) IsReady() bool {
	return m.ready
}

func (m *SearchModel) SetReady(ready bool) {
	m.ready = ready
}

// Cancel stops a running search after its current trial
func (m *SearchModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Cleanup stops any running search and closes the connection
func (m *SearchModel) Cleanup() {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Close()
}
