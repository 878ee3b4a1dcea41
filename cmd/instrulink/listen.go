/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nordiclab/instrulink"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print lines an instrument sends on its own",
	Long: `Listen for unsolicited lines from the instrument and print them as
they arrive. Useful for data loggers and firmware that streams
readings without being asked.

Runs until interrupted (Ctrl+C). Read timeouts are silent, the link
just keeps waiting. With --output the lines are also appended to a
file for later parsing.

Example usage:
  instrulink listen -p /dev/ttyUSB0 -b 115200
  instrulink listen -P logger.yaml --timestamps
  instrulink listen -P logger.yaml --output run42.log`,
	Run: func(cmd *cobra.Command, args []string) {
		timestamps, _ := cmd.Flags().GetBool("timestamps")
		outputPath, _ := cmd.Flags().GetString("output")

		link, port, err := buildLink()
		if err != nil {
			exitConfig(err)
		}
		defer link.Close()

		if err := connect(link, port); err != nil {
			exitComm(err)
		}

		var file *os.File
		if outputPath != "" {
			file, err = os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				exitConfig(fmt.Errorf("open output file: %w", err))
			}
			defer file.Close()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
			cancel()
		}()

		fmt.Fprintf(os.Stderr, "Listening on %s, press Ctrl+C to stop\n\n", link.Port())

		lines := 0
		startTime := time.Now()
		for ctx.Err() == nil {
			line, err := link.ReadLine()
			if errors.Is(err, instrulink.ErrReadTimeout) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				exitComm(err)
			}

			lines++
			if timestamps {
				line = time.Now().Format("15:04:05.000") + "  " + line
			}
			fmt.Println(line)
			if file != nil {
				if _, err := file.WriteString(line + "\n"); err != nil {
					exitComm(fmt.Errorf("write output file: %w", err))
				}
			}
		}

		duration := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "\nDone: %d lines in %v\n", lines, duration.Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("timestamps", false, "Prefix each line with the arrival time")
	listenCmd.Flags().StringP("output", "o", "", "Append received lines to this file")
}
