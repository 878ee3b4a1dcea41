/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/nordiclab/instrulink"
	"github.com/spf13/cobra"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <command>",
	Short: "Send a command and print the instrument's reply",
	Long: `Send a command to the instrument and print the reply on stdout.

The link is established first (pinned port or discovery, see 'scan'),
the command is sent with the configured terminator and a single reply
line is read back. When the reply does not have the expected shape the
link flushes both buffers and retries the exchange once before giving
up.

Examples:
  instrulink query '*IDN?' -p /dev/ttyUSB0
  instrulink query 'MEAS?' -P alia.yaml --values
  instrulink query 'STATUS?' -P pump.yaml --check-pattern '^(OK|BUSY)$'
  instrulink query 'VERSION?' -p /dev/ttyACM0 --hex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		valuesMode, _ := cmd.Flags().GetBool("values")
		hexMode, _ := cmd.Flags().GetBool("hex")
		checkPattern, _ := cmd.Flags().GetString("check-pattern")

		link, port, err := buildLink()
		if err != nil {
			exitConfig(err)
		}
		defer link.Close()

		if err := connect(link, port); err != nil {
			exitComm(err)
		}

		command := args[0]

		if valuesMode {
			values, err := link.QueryValues(command)
			if err != nil {
				reportQueryError(err)
			}
			for _, v := range values {
				fmt.Println(strconv.FormatFloat(v, 'g', -1, 64))
			}
			return
		}

		var checks []instrulink.Matcher
		if checkPattern != "" {
			re, err := regexp.Compile(checkPattern)
			if err != nil {
				exitConfig(fmt.Errorf("invalid --check-pattern: %w", err))
			}
			checks = append(checks, instrulink.MatchPattern(re))
		}

		reply, err := link.Query(command, checks...)
		if err != nil {
			reportQueryError(err)
		}

		if hexMode {
			fmt.Printf("% x\n", []byte(reply))
		} else {
			fmt.Println(reply)
		}
	},
}

// reportQueryError prints a communication error with a hint for the
// common cases and exits with status 1.
func reportQueryError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, instrulink.ErrReplyMismatch) {
		fmt.Fprintln(os.Stderr, "The instrument answered, but not in the expected shape")
	}
	if errors.Is(err, instrulink.ErrReadTimeout) {
		fmt.Fprintln(os.Stderr, "No reply within the timeout, is the instrument powered on?")
	}
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().Bool("values", false, "Parse the reply as separated numbers, one per output line")
	queryCmd.Flags().Bool("hex", false, "Print the reply as hex bytes")
	queryCmd.Flags().String("check-pattern", "", "Regexp the reply must match, mismatches trigger a resync")
}
