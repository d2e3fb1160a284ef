package dwire

import (
	"context"
	"errors"
	"fmt"
)

// Linker performs the device-specific handshake on a connection whose baud
// rate has just been validated.
type Linker interface {
	Link(conn Conn, baudRate int) error
}

// LinkFunc adapts a function to Linker
type LinkFunc func(conn Conn, baudRate int) error

// Link calls f(conn, baudRate)
func (f LinkFunc) Link(conn Conn, baudRate int) error {
	return f(conn, baudRate)
}

// Session owns device discovery and the single open connection.
//
// The zero state is disconnected. Connect populates the selected port,
// connection and baud rate; Close, Reset and every failed attempt clear
// them again. A Session is not safe for concurrent use.
type Session struct {
	transport  Transport
	enumerator Enumerator
	linker     Linker
	config     Config
	searcher   *Searcher
	barriers   barrierStack

	port     string
	conn     Conn
	baudRate int
}

// NewSession creates a session. linker may be nil when no handshake is
// needed after the baud rate is found.
func NewSession(transport Transport, enumerator Enumerator, linker Linker, opts ...Option) (*Session, error) {
	if transport == nil || enumerator == nil {
		return nil, fmt.Errorf("transport and enumerator are required: %w", ErrInvalidConfig)
	}

	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Session{
		transport:  transport,
		enumerator: enumerator,
		linker:     linker,
		config:     config,
		searcher:   newSearcher(transport, config),
	}, nil
}

// Port returns the port of the current connection, or ""
func (s *Session) Port() string { return s.port }

// Conn returns the current connection, or nil
func (s *Session) Conn() Conn { return s.conn }

// BaudRate returns the validated rate of the current connection, or 0
func (s *Session) BaudRate() int { return s.baudRate }

// Connect finds a debugWIRE target and leaves the session connected to it.
//
// With a non-empty port only that port is tried, once, and failure is
// reported as ErrNamedPortUnreachable. Otherwise candidates from the
// enumerator are tried in turn until one connects; running out of
// candidates is reported as ErrDeviceNotFound. Errors from the Linker are
// returned unchanged.
func (s *Session) Connect(ctx context.Context, port string) error {
	s.release()

	if port != "" {
		if err := s.attempt(ctx, port); err != nil {
			return unwrapLink(err)
		}
		if s.conn == nil {
			return fmt.Errorf("%w on %s", ErrNamedPortUnreachable, port)
		}
		return nil
	}

	for s.conn == nil {
		name, ok := s.enumerator.Next()
		if !ok {
			return ErrDeviceNotFound
		}
		if err := s.attempt(ctx, name); err != nil {
			return unwrapLink(err)
		}
	}
	return nil
}

// Reset closes any connection, forgets the selected port and searches all
// candidates again.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.Close(); err != nil {
		s.config.Logger.Debug().Err(err).Msg("close before reset")
	}
	return s.Connect(ctx, "")
}

// Close closes the current connection, if any
func (s *Session) Close() error {
	return s.release()
}

// release drops the connection and selection state, closing the connection
func (s *Session) release() error {
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	s.conn = nil
	s.port = ""
	s.baudRate = 0
	return err
}

// attempt runs one connection attempt on port inside a recovery scope.
// Recovered failures leave the session disconnected and return nil; only
// failures no barrier absorbs are returned.
func (s *Session) attempt(ctx context.Context, port string) (err error) {
	restore := s.barriers.push(func(err error) bool {
		if !recoverable(err) {
			return false
		}
		s.config.Logger.Debug().Str("port", port).Err(err).Msg("attempt abandoned")
		return true
	})
	defer restore()

	linking := false
	defer func() {
		if r := recover(); r != nil {
			if linking {
				s.release()
				panic(r)
			}
			err = &Fault{Port: port, Op: "attempt", Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			s.release()
			err = s.barriers.raise(err)
		}
	}()

	s.port = port
	conn, rate, err := s.searcher.Search(ctx, port)
	if err != nil {
		return err
	}
	s.conn = conn
	s.baudRate = rate

	if s.linker != nil {
		linking = true
		if err := s.linker.Link(conn, rate); err != nil {
			return &linkError{err: err}
		}
	}

	s.config.Logger.Info().Str("port", port).Int("baud", rate).Msg("connected")
	return nil
}

func unwrapLink(err error) error {
	var linkErr *linkError
	if errors.As(err, &linkErr) {
		return linkErr.err
	}
	return err
}
