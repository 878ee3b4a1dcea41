/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nordiclab/instrulink"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports instruments could be attached to",
	Long: `List the serial ports currently present on the host.

These are the candidate endpoints a discovery scan probes. The table
view adds USB metadata from sysfs (vendor/product/serial) and marks
ports the current user cannot open. The usual fix on Linux is
membership in the dialout group.

Example usage:
  instrulink list
  instrulink list --table
  instrulink list --filter usb`,
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := instrulink.ListPortInfo()
		if err != nil {
			exitComm(fmt.Errorf("listing ports: %w", err))
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		infos = filterPorts(infos, filterType)
		if len(infos) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(infos)
		} else {
			for _, info := range infos {
				fmt.Println(info.Path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "T", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(infos []*instrulink.PortInfo, filterType string) []*instrulink.PortInfo {
	if filterType == "" || filterType == "all" {
		return infos
	}

	var filtered []*instrulink.PortInfo
	for _, info := range infos {
		name := strings.ToLower(info.Name)
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, info)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, info)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, info)
			}
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(infos []*instrulink.PortInfo) {
	fmt.Printf("Found %d serial port(s):\n\n", len(infos))

	portWidth := 15
	descWidth := 32
	usbWidth := 18
	accessWidth := 8

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	deniedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		portWidth, "Port",
		descWidth, "Description",
		usbWidth, "USB (VID:PID)",
		accessWidth, "Access")
	fmt.Println(headerStyle.Render(header))

	for _, info := range infos {
		usb := ""
		if info.VendorID != "" {
			usb = info.VendorID + ":" + info.ProductID
			if info.SerialNumber != "" {
				usb += " " + info.SerialNumber
			}
		}

		access := "ok"
		if !info.Accessible {
			access = deniedStyle.Render("denied")
		}

		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			portWidth, info.Name,
			descWidth, info.Description,
			usbWidth, usb,
			accessWidth, access)
		fmt.Println(cellStyle.Render(row))
	}
}
