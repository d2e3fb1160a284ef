package dwire

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// PortableTransport opens ports through go.bug.st/serial. It works on every
// platform that library supports, at the cost of less control over termios.
type PortableTransport struct {
	ReadTimeout time.Duration
}

// Ensure PortableTransport implements Transport at compile time
var _ Transport = PortableTransport{}

// Open opens device at baudRate in 8N1 mode
func (t PortableTransport) Open(device string, baudRate int) (Conn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, portError(err))
	}

	if err := p.SetReadTimeout(t.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, portError(err))
	}

	return &portableConn{port: p}, nil
}

// portError maps go.bug.st/serial error codes to package errors
func portError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}

	switch portErr.Code() {
	case serial.InvalidSpeed:
		return ErrUnsupportedRate
	case serial.PortNotFound, serial.InvalidSerialPort:
		return ErrPortNotFound
	case serial.PortBusy:
		return ErrDeviceBusy
	case serial.PermissionDenied:
		return ErrPermissionDenied
	case serial.PortClosed:
		return ErrPortClosed
	default:
		return err
	}
}

type portableConn struct {
	port serial.Port
}

func (c *portableConn) SendBreak(d time.Duration) error {
	if err := c.port.ResetInputBuffer(); err != nil {
		return portError(err)
	}
	return portError(c.port.Break(d))
}

func (c *portableConn) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := c.port.Read(buf[:])
	if err != nil {
		return 0, portError(err)
	}
	if n == 0 {
		return 0, ErrReadTimeout
	}
	return buf[0], nil
}

func (c *portableConn) Close() error {
	return portError(c.port.Close())
}
