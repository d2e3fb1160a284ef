package dwire

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// settleDelay is how long a reset adapter takes to re-enumerate
var settleDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the adapter behind portPath.
// A hung FT232 stops answering breaks at every rate until it is reset.
//
// Requirements:
// - usbreset utility must be installed (from usbutils package)
// - Requires appropriate permissions (typically root/sudo)
//
// Returns:
// - nil if reset successful
// - ErrUSBResetNotAvailable if usbreset utility not found
// - ErrUSBInfoNotAvailable if device is not USB or metadata unavailable
// - error if reset fails
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	usbPath, err := formatUSBPath(info.BusNumber, info.DeviceNumber)
	if err != nil {
		return err
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	cmd := exec.Command("usbreset", usbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	time.Sleep(settleDelay)
	return nil
}

// ResetUSBDeviceBySerial resets the adapter with the given USB serial number.
// Useful when the adapter may come back under a different ttyUSB name.
func ResetUSBDeviceBySerial(serialNumber string) error {
	ports, err := ListPorts()
	if err != nil {
		return err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err != nil {
			continue
		}
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(portPath)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}

// formatUSBPath builds the BBB/DDD argument usbreset expects
func formatUSBPath(bus, device string) (string, error) {
	busNum, err := strconv.Atoi(bus)
	if err != nil {
		return "", ErrUSBInfoNotAvailable
	}
	devNum, err := strconv.Atoi(device)
	if err != nil {
		return "", ErrUSBInfoNotAvailable
	}
	return fmt.Sprintf("%03d/%03d", busNum, devNum), nil
}
