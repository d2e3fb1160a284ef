package dwire

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Enumerator yields candidate serial devices for a discovery pass.
type Enumerator interface {
	// Next returns the next candidate. After it reports exhaustion with
	// ok == false, the following call starts a fresh pass.
	Next() (name string, ok bool)
}

// EnumeratorKind selects an Enumerator implementation
type EnumeratorKind string

const (
	EnumeratorDir    EnumeratorKind = "dir"    // scan a device directory
	EnumeratorSystem EnumeratorKind = "system" // ask the OS for its serial device list
)

// NewEnumerator returns the enumerator for kind. An empty kind picks the
// directory scan on Linux and the system list everywhere else.
func NewEnumerator(kind EnumeratorKind) (Enumerator, error) {
	if kind == "" {
		kind = EnumeratorSystem
		if runtime.GOOS == "linux" {
			kind = EnumeratorDir
		}
	}

	switch kind {
	case EnumeratorDir:
		return NewDirScanner(), nil
	case EnumeratorSystem:
		return NewSystemScanner(), nil
	default:
		return nil, fmt.Errorf("unknown enumerator %q: %w", kind, ErrInvalidConfig)
	}
}

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// debugWIRE needs arbitrary divisors, which in practice means FT232 style
// USB adapters.
var adapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`),
}

// DirScanner walks a device directory once per pass
type DirScanner struct {
	Dir      string
	Patterns []*regexp.Regexp

	pending []string
	started bool
}

// NewDirScanner returns a scanner for USB serial adapters under /dev
func NewDirScanner() *DirScanner {
	return &DirScanner{
		Dir:      "/dev",
		Patterns: adapterPatterns,
	}
}

// Next implements Enumerator
func (s *DirScanner) Next() (string, bool) {
	if !s.started {
		s.started = true
		ports, err := scanDir(s.Dir, s.Patterns)
		if err != nil {
			ports = nil
		}
		s.pending = ports
	}

	if len(s.pending) == 0 {
		s.started = false
		return "", false
	}

	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, true
}

// SystemScanner walks the operating system's serial device list
type SystemScanner struct {
	// USBOnly skips ports that are not backed by a USB device
	USBOnly bool

	list    func() ([]*enumerator.PortDetails, error)
	pending []string
	started bool
}

// NewSystemScanner returns a scanner over USB serial ports reported by the OS
func NewSystemScanner() *SystemScanner {
	return &SystemScanner{
		USBOnly: true,
		list:    enumerator.GetDetailedPortsList,
	}
}

// Next implements Enumerator
func (s *SystemScanner) Next() (string, bool) {
	if !s.started {
		s.started = true
		s.pending = nil
		details, err := s.list()
		if err == nil {
			for _, d := range details {
				if s.USBOnly && !d.IsUSB {
					continue
				}
				s.pending = append(s.pending, d.Name)
			}
		}
	}

	if len(s.pending) == 0 {
		s.started = false
		return "", false
	}

	name := s.pending[0]
	s.pending = s.pending[1:]
	return name, true
}

// PortList enumerates a fixed set of names
type PortList struct {
	names []string
	next  int
}

// NewPortList returns an enumerator over names, in order
func NewPortList(names ...string) *PortList {
	return &PortList{names: names}
}

// Next implements Enumerator
func (l *PortList) Next() (string, bool) {
	if l.next >= len(l.names) {
		l.next = 0
		return "", false
	}
	name := l.names[l.next]
	l.next++
	return name, true
}

// ListPorts returns a list of available serial ports on the system
// Filters for communication-capable devices and excludes virtual terminals
func ListPorts() ([]string, error) {
	return scanDir("/dev", serialPatterns)
}

// Exclude patterns for virtual terminals and other non-serial devices
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),  // Virtual terminals (tty1, tty2, etc.)
	regexp.MustCompile(`^console$`), // Console
	regexp.MustCompile(`^ptmx$`),    // Pseudo-terminal multiplexer
	regexp.MustCompile(`^pty.*$`),   // Pseudo-terminals
}

func matchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// scanDir returns sorted character devices in dir matching patterns
func scanDir(dir string, patterns []*regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if matchesAny(name, excludePatterns) || !matchesAny(name, patterns) {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial port and, for USB adapters, its device
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	VendorID     string
	ProductID    string
	SerialNumber string
	Manufacturer string
	Product      string
	BusNumber    string
	DeviceNumber string
}

// IsUSB reports whether USB metadata was found for the port
func (i *PortInfo) IsUSB() bool {
	return i.VendorID != "" && i.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrPortNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info, sysfsTTYPath)
	}

	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

var sysfsTTYPath = "/sys/class/tty"

// enrichUSBInfo follows /sys/class/tty/<name>/device up to the USB device
// directory (the first ancestor carrying idVendor) and reads its attributes.
func enrichUSBInfo(info *PortInfo, ttyRoot string) {
	devPath, err := filepath.EvalSymlinks(filepath.Join(ttyRoot, info.Name, "device"))
	if err != nil {
		return
	}

	usbPath := findUSBDeviceDir(devPath)
	if usbPath == "" {
		return
	}

	info.VendorID = readSysfsFile(filepath.Join(usbPath, "idVendor"))
	info.ProductID = readSysfsFile(filepath.Join(usbPath, "idProduct"))
	info.SerialNumber = readSysfsFile(filepath.Join(usbPath, "serial"))
	info.Manufacturer = readSysfsFile(filepath.Join(usbPath, "manufacturer"))
	info.Product = readSysfsFile(filepath.Join(usbPath, "product"))
	info.BusNumber = readSysfsFile(filepath.Join(usbPath, "busnum"))
	info.DeviceNumber = readSysfsFile(filepath.Join(usbPath, "devnum"))
}

// findUSBDeviceDir walks up from path to the directory holding idVendor
func findUSBDeviceDir(path string) string {
	for dir := path; dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			return dir
		}
	}
	return ""
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or ""
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
