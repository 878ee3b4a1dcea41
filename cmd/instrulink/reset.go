/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nordiclab/instrulink"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port|serial>",
	Short: "Reset a hung USB serial instrument",
	Long: `Perform a USB-level reset on the adapter behind a serial port. This
can recover instruments that stopped answering without physically
unplugging them.

The device re-enumerates after the reset, which may move the port path
(/dev/ttyUSB0 can come back as /dev/ttyUSB1). Identify instruments by
USB serial number when the path must survive a reset.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo instrulink reset /dev/ttyUSB0       # Reset by port path
  sudo instrulink reset --serial NC7ILXW1  # Reset by serial number`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag == "" && len(args) != 1 {
			return errors.New("requires either a port path argument or --serial flag")
		}
		if serialFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --serial flag")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !instrulink.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		serialFlag, _ := cmd.Flags().GetString("serial")

		var err error
		if serialFlag != "" {
			fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
			err = instrulink.ResetUSBPortBySerial(serialFlag)
		} else {
			portPath := args[0]
			fmt.Printf("Resetting USB device: %s\n", portPath)
			err = instrulink.ResetUSBPort(portPath)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, instrulink.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("Device will re-enumerate (port path may change)")
		fmt.Println("\nUse 'instrulink list --table' to see updated port list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().String("serial", "", "Reset device by USB serial number instead of port path")
}
