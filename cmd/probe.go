/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	dwire "github.com/allbin/go-dwire"
	"github.com/spf13/cobra"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <port> <baud>",
	Short: "Send one break at a fixed baud rate and show the reply",
	Long: `Run a single trial: open the port at the given rate, send a break,
print what came back and close the port again.

The break is about one byte time at the given rate unless --break is set.

Examples:
  dwire probe /dev/ttyUSB0 9600
  dwire probe /dev/ttyUSB0 40000 --break 50ms`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		baudRate, err := strconv.Atoi(args[1])
		if err != nil || baudRate <= 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid baud rate %q\n", args[1])
			os.Exit(1)
		}

		brk, _ := cmd.Flags().GetDuration("break")
		if brk <= 0 {
			brk = dwire.BreakLength(baudRate)
		}

		transport, err := newTransport()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger := newLogger(os.Stderr)
		opts := append(searchOptions(logger), dwire.WithTracer(consoleTracer{w: cmd.OutOrStdout()}))
		searcher, err := dwire.NewSearcher(transport, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		result, err := searcher.Try(context.Background(), dwire.Attempt{
			Port:        portPath,
			BaudRate:    baudRate,
			BreakLength: brk,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if result.Factor > 100 {
			fmt.Printf("Estimated rate: %d baud\n", dwire.NextRate(baudRate, result.Factor))
		}
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().Duration("break", 0, "Break length (default: about one byte time)")
}
