/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nordiclab/instrulink"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  instrulink info /dev/ttyUSB0
  instrulink info /dev/ttyACM0

For USB adapters this displays vendor/product IDs, serial number and
the bus/device numbers a USB reset needs, all extracted from sysfs,
plus whether the current user may open the port.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		info, err := instrulink.GetPortInfo(portPath)
		if err != nil {
			exitComm(fmt.Errorf("getting port info: %w", err))
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)
		if info.Accessible {
			fmt.Printf("  Access:      ok\n")
		} else {
			fmt.Printf("  Access:      denied (try adding yourself to the dialout group)\n")
		}

		if info.VendorID != "" || info.ProductID != "" {
			fmt.Println("\nUSB Device Information:")
			if info.VendorID != "" {
				fmt.Printf("  Vendor ID:  %s\n", info.VendorID)
			}
			if info.ProductID != "" {
				fmt.Printf("  Product ID: %s\n", info.ProductID)
			}
			if info.SerialNumber != "" {
				fmt.Printf("  Serial:     %s\n", info.SerialNumber)
			}
			if info.BusNumber != "" {
				fmt.Printf("  Bus:        %s\n", info.BusNumber)
			}
			if info.DeviceNumber != "" {
				fmt.Printf("  Device:     %s\n", info.DeviceNumber)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
