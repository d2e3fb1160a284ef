package dwire

import (
	"fmt"
	"strings"
	"time"
)

// Transport opens serial connections at a requested baud rate.
//
// Open must report a rate the port cannot be configured for as an error
// matching ErrUnsupportedRate. Any other error is treated as a driver fault.
type Transport interface {
	Open(name string, baudRate int) (Conn, error)
}

// Conn is one open serial connection. All operations block until they
// complete or the driver's read timeout expires.
type Conn interface {
	SendBreak(d time.Duration) error
	// ReadByte returns ErrReadTimeout when no byte arrived in time.
	ReadByte() (byte, error)
	Close() error
}

// Backend selects a Transport implementation
type Backend string

const (
	BackendNative   Backend = "native"   // termios through golang.org/x/sys/unix
	BackendPortable Backend = "portable" // go.bug.st/serial
)

// NewTransport returns the transport for the named backend. Only the
// ReadTimeout option applies.
func NewTransport(backend Backend, opts ...Option) (Transport, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	switch Backend(strings.ToLower(string(backend))) {
	case BackendNative, "":
		return NativeTransport{ReadTimeout: config.ReadTimeout}, nil
	case BackendPortable:
		return PortableTransport{ReadTimeout: config.ReadTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q: %w", backend, ErrInvalidConfig)
	}
}
