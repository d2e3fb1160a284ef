// Package dwire finds and connects to debugWIRE targets behind USB serial
// adapters.
//
// A debugWIRE device has no fixed baud rate: it talks at its CPU clock
// divided by 128. After a break on the line it answers with 0x55, so the
// rate can be recovered by sending breaks at trial rates and looking at what
// comes back.
//
// # Basic Usage
//
// Search every USB serial adapter and stay connected to the first target:
//
//	transport, err := dwire.NewTransport(dwire.BackendNative)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	enum, err := dwire.NewEnumerator("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := dwire.NewSession(transport, enum, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	if err := session.Connect(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s at %d baud\n", session.Port(), session.BaudRate())
//
// Pass a port name to Connect to try only that port.
//
// # Configuration Options
//
// Use functional options to tune the search:
//
//	session, err := dwire.NewSession(transport, enum, linker,
//	    dwire.WithStartRate(40000),
//	    dwire.WithMaxTrials(200),
//	    dwire.WithLogger(logger),
//	    dwire.WithTracer(tracer),
//	)
//
// # Search
//
// The descent phase starts at 40000 baud with a 50ms break. While the
// response pulses are wider than the trial bit period the rate is divided
// by their approximate width (see ApproxFactor). Once 0x55 arrives, the
// rate is stepped up and down by 2% for as long as 0x55 keeps arriving, and
// the middle of that window is validated with one more break before the
// connection is handed out.
//
// A Searcher can be used directly when session handling is not needed.
//
// # Backends
//
//   - native: termios2 ioctls through golang.org/x/sys/unix (Linux)
//   - portable: go.bug.st/serial
//
// # Error Handling
//
// Failures on one candidate port end that attempt and discovery moves on.
// Only the outcome of the whole connect is returned:
//
//	var (
//	    ErrDeviceNotFound       // no candidate produced a connection
//	    ErrNamedPortUnreachable // the requested port produced no connection
//	)
//
// Errors returned by the Linker are passed back unchanged.
//
// # USB Device Management (Linux)
//
// A hung adapter can be reset programmatically:
//
//	err := dwire.ResetUSBDevice("/dev/ttyUSB0")
//
// Requires usbreset utility from usbutils package and root/sudo permissions.
package dwire
