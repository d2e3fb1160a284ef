/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	dwire "github.com/allbin/go-dwire"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial adapter",
	Long: `Display detailed information about a serial adapter including USB metadata.

Examples:
  dwire info /dev/ttyUSB0

For USB adapters this shows vendor/product IDs, the serial number and the
bus/device numbers that dwire reset --usb passes to usbreset.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		info, err := dwire.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)

		if !info.IsUSB() {
			fmt.Println("\nNo USB metadata: debugWIRE needs a USB serial adapter.")
			return
		}

		fmt.Println("\nUSB Device Information:")
		fmt.Printf("  Vendor ID:    %s\n", info.VendorID)
		fmt.Printf("  Product ID:   %s\n", info.ProductID)
		if info.SerialNumber != "" {
			fmt.Printf("  Serial:       %s\n", info.SerialNumber)
		}
		if info.BusNumber != "" {
			fmt.Printf("  Bus:          %s\n", info.BusNumber)
		}
		if info.DeviceNumber != "" {
			fmt.Printf("  Device:       %s\n", info.DeviceNumber)
		}
		if info.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
		}
		if info.Product != "" {
			fmt.Printf("  Product:      %s\n", info.Product)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
