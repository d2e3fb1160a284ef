package dwire

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// NativeTransport opens ports with raw termios calls. Rates missing from the
// standard Bxxx table are requested through termios2 (BOTHER), which FT232
// class adapters accept for almost any divisor.
type NativeTransport struct {
	ReadTimeout time.Duration
}

// Ensure NativeTransport implements Transport at compile time
var _ Transport = NativeTransport{}

// Open opens device at baudRate in raw 8N1 mode
func (t NativeTransport) Open(device string, baudRate int) (Conn, error) {
	p, err := openPort(device, baudRate, t.ReadTimeout)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// port is the concrete termios implementation of Conn
type port struct {
	mu       sync.Mutex
	fd       int
	device   string
	baudRate int
	closed   bool
}

// Ensure port implements Conn at compile time
var _ Conn = (*port)(nil)

// getBaudRate converts an integer baud rate to the unix constant.
// ok is false for rates that need BOTHER.
func getBaudRate(rate int) (speed uint32, ok bool) {
	switch rate {
	case 50:
		return unix.B50, true
	case 75:
		return unix.B75, true
	case 110:
		return unix.B110, true
	case 134:
		return unix.B134, true
	case 150:
		return unix.B150, true
	case 200:
		return unix.B200, true
	case 300:
		return unix.B300, true
	case 600:
		return unix.B600, true
	case 1200:
		return unix.B1200, true
	case 1800:
		return unix.B1800, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 500000:
		return unix.B500000, true
	case 921600:
		return unix.B921600, true
	case 1000000:
		return unix.B1000000, true
	default:
		return 0, false
	}
}

// readTimeoutTenths converts a timeout to VTIME deciseconds (1-255)
func readTimeoutTenths(timeout time.Duration) uint8 {
	tenths := timeout / (100 * time.Millisecond)
	if tenths < 1 {
		return 1
	}
	if tenths > 255 {
		return 255
	}
	return uint8(tenths)
}

// openError maps errno values from open(2) to package errors
func openError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrPortNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return ErrDeviceBusy
	default:
		return err
	}
}

func openPort(device string, baudRate int, readTimeout time.Duration) (*port, error) {
	if baudRate <= 0 {
		return nil, fmt.Errorf("%d baud: %w", baudRate, ErrUnsupportedRate)
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, openError(err))
	}

	if err := configurePort(fd, baudRate, readTimeout); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// Blocking reads from here on; VTIME bounds them.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to clear O_NONBLOCK on %s: %v", device, err)
	}

	return &port{
		fd:       fd,
		device:   device,
		baudRate: baudRate,
	}, nil
}

// configurePort puts the line in raw 8N1 mode at baudRate
func configurePort(fd int, baudRate int, readTimeout time.Duration) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS2)
	if err != nil {
		return fmt.Errorf("failed to get termios: %v", err)
	}

	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// VMIN=0 with VTIME gives a per-byte timeout
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = readTimeoutTenths(readTimeout)

	if speed, ok := getBaudRate(baudRate); ok {
		termios.Cflag |= speed
		termios.Ispeed = speed
		termios.Ospeed = speed
	} else {
		termios.Cflag |= unix.BOTHER
		termios.Ispeed = uint32(baudRate)
		termios.Ospeed = uint32(baudRate)
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS2, termios); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return fmt.Errorf("%d baud: %w", baudRate, ErrUnsupportedRate)
		}
		return fmt.Errorf("failed to set termios: %v", err)
	}
	return nil
}

// SendBreak holds the line low for d, then releases it
func (p *port) SendBreak(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	// Stale input would be read as the break response
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("failed to flush input: %v", err)
	}
	if err := unix.IoctlSetInt(p.fd, unix.TIOCSBRK, 0); err != nil {
		return fmt.Errorf("failed to set break: %v", err)
	}
	time.Sleep(d)
	if err := unix.IoctlSetInt(p.fd, unix.TIOCCBRK, 0); err != nil {
		return fmt.Errorf("failed to clear break: %v", err)
	}
	return nil
}

// ReadByte reads a single byte, waiting at most the configured VTIME
func (p *port) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	var buf [1]byte
	for {
		n, err := unix.Read(p.fd, buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrReadTimeout
		}
		return buf[0], nil
	}
}

// Close closes the serial port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	err := unix.Close(p.fd)
	p.closed = true
	return err
}
