/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data]",
	Short: "Send a command without reading a reply",
	Long: `Send data to the instrument without waiting for a reply.

Data can be provided as:
- Command line argument: instrulink send "RST" -p /dev/ttyUSB0
- From stdin (pipe): echo "RST" | instrulink send -P pump.yaml
- Interactive mode: instrulink send -p /dev/ttyUSB0 (prompts for input)

Line data is sent with the configured write terminator appended. With
--hex the bytes are decoded from hexadecimal and sent verbatim, with
no terminator.

Example usage:
  instrulink send "RST" -p /dev/ttyUSB0
  instrulink send "53 54 41 52 54" --hex -P valve.yaml
  echo "HOME" | instrulink send -P stage.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hexMode, _ := cmd.Flags().GetBool("hex")

		var data string
		if len(args) == 1 {
			data = args[0]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		var raw []byte
		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				exitConfig(fmt.Errorf("invalid hex data: %w", err))
			}
			raw = decoded
		}

		link, port, err := buildLink()
		if err != nil {
			exitConfig(err)
		}
		defer link.Close()

		fmt.Printf("%s Connecting...\n", sendInfoStyle.Render("⚡"))
		if err := connect(link, port); err != nil {
			fmt.Printf("%s %v\n", sendErrorStyle.Render("✗"), err)
			os.Exit(1)
		}
		fmt.Printf("%s Connected to %s\n", sendOKStyle.Render("✓"), link.Port())

		if hexMode {
			fmt.Printf("%s Sending %d bytes...\n", sendInfoStyle.Render("📤"), len(raw))
			err = link.WriteRaw(raw)
		} else {
			fmt.Printf("%s Sending %q...\n", sendInfoStyle.Render("📤"), data)
			err = link.Write(data)
		}
		if err != nil {
			fmt.Printf("%s %v\n", sendErrorStyle.Render("✗"), err)
			os.Exit(1)
		}

		fmt.Printf("%s Sent\n", sendOKStyle.Render("✓"))
	},
}

var (
	sendInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	sendOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	sendErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
}

// promptForData asks for a line of input on an interactive terminal.
func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// parseHexString decodes hex input, tolerating spaces and 0x prefixes.
func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")
	return hex.DecodeString(hexStr)
}
