/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	dwire "github.com/allbin/go-dwire"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the selected adapter and search all of them again",
	Long: `Drop any selected adapter and run discovery over every candidate again.

A hung USB serial adapter stops answering breaks at every rate. With --usb
or --serial the adapter is reset at the USB level first, which recovers it
without physically unplugging it. The adapter re-enumerates after a reset,
so its port path may change; discovery picks it up under the new name.

USB reset requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  dwire reset
  sudo dwire reset --usb /dev/ttyUSB0     # Reset adapter by port path
  sudo dwire reset --serial A50285BI      # Reset adapter by serial number`,
	Args: func(cmd *cobra.Command, args []string) error {
		usbFlag, _ := cmd.Flags().GetString("usb")
		serialFlag, _ := cmd.Flags().GetString("serial")
		if usbFlag != "" && serialFlag != "" {
			return errors.New("cannot specify both --usb and --serial")
		}
		return cobra.NoArgs(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		usbFlag, _ := cmd.Flags().GetString("usb")
		serialFlag, _ := cmd.Flags().GetString("serial")

		if usbFlag != "" || serialFlag != "" {
			if !dwire.IsUSBResetAvailable() {
				fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
				fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
				os.Exit(1)
			}

			var err error
			if serialFlag != "" {
				fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
				err = dwire.ResetUSBDeviceBySerial(serialFlag)
			} else {
				fmt.Printf("Resetting USB device: %s\n", usbFlag)
				err = dwire.ResetUSBDevice(usbFlag)
			}

			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				if errors.Is(err, dwire.ErrUSBInfoNotAvailable) {
					fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
				}
				os.Exit(1)
			}
			fmt.Println("USB device reset successfully")
		}

		logger := newLogger(os.Stderr)
		session, err := newSession(0, logger, dwire.LogTracer{Logger: logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := session.Reset(ctx); err != nil {
			reportConnectError(err)
			session.Close()
			os.Exit(1)
		}

		fmt.Printf("Connected to debugWIRE device on %s at %d baud.\n", session.Port(), session.BaudRate())
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().String("usb", "", "Reset the adapter behind this port at the USB level first")
	resetCmd.Flags().StringP("serial", "s", "", "Reset the adapter with this USB serial number first")
}
