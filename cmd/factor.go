/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"

	dwire "github.com/allbin/go-dwire"
	"github.com/allbin/go-dwire/internal/tui/styles"
	"github.com/spf13/cobra"
)

// factorCmd represents the factor command
var factorCmd = &cobra.Command{
	Use:   "factor <byte>...",
	Short: "Show how a break response byte is scored",
	Long: `Show the pulse width factor the search derives from a response byte.

Bytes may be given in decimal, hex (0x55) or binary (0b01010101). With
--rate the next trial rate the descent would pick is shown as well.

Examples:
  dwire factor 0x55
  dwire factor 0x78 0x4B --rate 40000`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rate, _ := cmd.Flags().GetInt("rate")

		for _, arg := range args {
			v, err := strconv.ParseUint(arg, 0, 8)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid byte %q\n", arg)
				os.Exit(1)
			}
			b := byte(v)
			factor := dwire.ApproxFactor(b)

			score := fmt.Sprintf("factor %d%%", factor)
			switch {
			case b == dwire.ResponseByte:
				score = "match"
			case rate > 0 && factor > 100:
				score += fmt.Sprintf(", next rate %d", dwire.NextRate(rate, factor))
			}
			fmt.Printf("%02X  %s  %s\n", b, dwire.FormatBits(dwire.Response(b)), styles.FactorStyle(factor).Render(score))
		}
	},
}

func init() {
	rootCmd.AddCommand(factorCmd)

	factorCmd.Flags().Int("rate", 0, "Trial rate the byte was received at")
}
