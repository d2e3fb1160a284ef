package dwire

import (
	"context"
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	// Search outcomes, recovered per connection attempt
	ErrNoResponse             = errors.New("no response to break")
	ErrUnsupportedRate        = errors.New("baud rate not supported by port")
	ErrNoExactMatch           = errors.New("no baud rate produced the expected break response")
	ErrWindowValidationFailed = errors.New("chosen baud rate failed validation")

	// Connection outcomes, returned to the caller
	ErrDeviceNotFound       = errors.New("couldn't find a debugWIRE device")
	ErrNamedPortUnreachable = errors.New("couldn't connect to debugWIRE device")

	// Transport errors
	ErrReadTimeout      = errors.New("read operation timed out")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrPortNotFound     = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceBusy       = errors.New("serial device already in use")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// Fault is a driver failure raised while a connection attempt was in
// progress. Faults end the attempt on that port but never the session.
type Fault struct {
	Port string
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Port, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// linkError marks a failure of the link-layer step that runs after a baud
// rate has been validated. The session never recovers it and hands the
// wrapped error back to the caller as is.
type linkError struct {
	err error
}

func (e *linkError) Error() string { return e.err.Error() }

func (e *linkError) Unwrap() error { return e.err }

// recoverable reports whether err only ends the current attempt.
func recoverable(err error) bool {
	var linkErr *linkError
	switch {
	case errors.As(err, &linkErr):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, ErrNamedPortUnreachable):
		return false
	}
	return true
}
