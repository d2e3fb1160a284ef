/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	dwire "github.com/allbin/go-dwire"
	"github.com/allbin/go-dwire/internal/tui/colors"
	"github.com/allbin/go-dwire/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports and debugWIRE candidates",
	Long: `List the serial ports on the system and mark the ones connect would try.

Candidates come from the configured enumerator (--enumerator): a scan of
/dev for USB serial adapters, or the operating system's list of USB serial
ports. Other serial devices are listed for reference.

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := dwire.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		enum, err := newEnumerator()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		candidates := collectCandidates(enum)

		// Candidates reported by the OS may live outside /dev scanning
		for name := range candidates {
			if !contains(ports, name) {
				ports = append(ports, name)
			}
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filteredPorts := filterPorts(ports, filterType, candidates)
		if len(filteredPorts) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(filteredPorts, candidates)
		} else {
			renderSimple(filteredPorts, candidates)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: candidates, usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// collectCandidates runs one discovery pass
func collectCandidates(e dwire.Enumerator) map[string]bool {
	candidates := make(map[string]bool)
	for name, ok := e.Next(); ok; name, ok = e.Next() {
		candidates[name] = true
	}
	return candidates
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string, candidates map[string]bool) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		name := strings.ToLower(port[strings.LastIndex(port, "/")+1:])
		switch strings.ToLower(filterType) {
		case "candidates":
			if candidates[port] {
				filtered = append(filtered, port)
			}
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

const (
	columnKeyPort      = "port"
	columnKeyType      = "type"
	columnKeyUSB       = "usb"
	columnKeyCandidate = "candidate"
)

// renderTable renders the port list in a styled static table format
func renderTable(ports []string, candidates map[string]bool) {
	fmt.Println(styles.InfoStyle.Render(fmt.Sprintf("Found %d serial port(s):", len(ports))))
	fmt.Println()

	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 18),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewColumn(columnKeyUSB, "USB Device", 34),
		table.NewColumn(columnKeyCandidate, "dW", 4),
	}

	candidateStyle := lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	osUSB := usbDescriptions(enumerator.GetDetailedPortsList)

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		data := table.RowData{
			columnKeyPort: port,
			columnKeyType: "Unknown",
			columnKeyUSB:  osUSB[port],
		}

		if info, err := dwire.GetPortInfo(port); err == nil {
			data[columnKeyPort] = info.Name
			data[columnKeyType] = getPortType(info.Name)
			if info.IsUSB() {
				data[columnKeyUSB] = fmt.Sprintf("%s:%s %s", info.VendorID, info.ProductID, info.Product)
			}
		}
		if candidates[port] {
			data[columnKeyCandidate] = table.NewStyledCell("✓", candidateStyle)
		}

		rows = append(rows, table.NewRow(data))
	}

	t := table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(colors.Text).BorderForeground(colors.Surface1).Align(lipgloss.Left))

	fmt.Println(t.View())
}

// usbDescriptions maps port paths to "VID:PID product" from the OS device
// list. It covers ports sysfs knows nothing about.
func usbDescriptions(list func() ([]*enumerator.PortDetails, error)) map[string]string {
	descriptions := make(map[string]string)
	details, err := list()
	if err != nil {
		return descriptions
	}
	for _, d := range details {
		if !d.IsUSB {
			continue
		}
		desc := fmt.Sprintf("%s:%s", strings.ToLower(d.VID), strings.ToLower(d.PID))
		if d.Product != "" {
			desc += " " + d.Product
		}
		descriptions[d.Name] = desc
	}
	return descriptions
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []string, candidates map[string]bool) {
	for _, port := range ports {
		if candidates[port] {
			fmt.Printf("%s *\n", port)
		} else {
			fmt.Println(port)
		}
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
