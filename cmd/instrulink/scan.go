/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/nordiclab/instrulink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan serial ports for a matching instrument",
	Long: `Scan all serial ports and connect to the first one whose identity
reply matches the configured expectation.

The probe command and expected reply come from the profile or from the
--probe/--expect/--match flags. Without an identity the first port that
opens is accepted, which is only safe on single-device systems.

When a port is pinned with --port, only that port is tried.

Examples:
  instrulink scan --probe 'id?' --expect 'Arduino, Alia' --match prefix
  instrulink scan -P julabo.yaml --remember ~/.cache/julabo/port.txt
  instrulink scan -p /dev/ttyUSB0 --probe '*IDN?' --match contains --expect JULABO`,
	Run: func(cmd *cobra.Command, args []string) {
		link, port, err := buildLink()
		if err != nil {
			exitConfig(err)
		}
		defer link.Close()

		probe := viper.GetString("probe")
		if probe == "" {
			fmt.Println(scanWarnStyle.Render("⚡ No identity probe configured, accepting the first port that opens"))
		} else if port != "" {
			fmt.Printf("🔎 Probing %s with %q...\n", port, probe)
		} else {
			fmt.Printf("🔎 Scanning ports with probe %q...\n", probe)
		}

		if err := connect(link, port); err != nil {
			if errors.Is(err, instrulink.ErrNoPortFound) {
				fmt.Println(scanErrorStyle.Render("✗ No matching instrument found"))
			} else {
				fmt.Println(scanErrorStyle.Render(fmt.Sprintf("✗ Scan failed: %v", err)))
			}
			os.Exit(1)
		}

		state := link.State()
		fmt.Println(scanOKStyle.Render(fmt.Sprintf("✓ Instrument found at %s", state.Port)))
		if viper.GetString("memory") != "" {
			fmt.Printf("Port remembered in %s\n", viper.GetString("memory"))
		}
	},
}

var (
	scanOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	scanErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	scanWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("remember", "", "File to remember the matched port in for later fast reconnects")
	viper.BindPFlag("memory", scanCmd.Flags().Lookup("remember"))
}
