/*
Copyright © 2026 Nordic Lab Systems <engineering@nordiclab.io>
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nordiclab/instrulink"
	"github.com/nordiclab/instrulink/profile"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instrulink",
	Short: "Find and talk to laboratory instruments on serial links",
	Long: `instrulink finds and talks to laboratory instruments attached to
serial ports (or raw-socket LAN endpoints) and keeps the exchange in
sync when replies skew.

Instruments are described either by flags (--probe/--expect/--match)
or by a YAML profile (--profile) carrying port parameters, timeouts
and the identity handshake. Discovery tries the last known port first
and falls back to probing every candidate port until one answers the
probe correctly.

Defaults for every flag can live in a config file (~/.instrulink.yaml)
or in INSTRULINK_* environment variables.

Example usage:
  instrulink list --table
  instrulink scan --probe "id?" --expect "Arduino, Alia" --match prefix
  instrulink query "MEAS?" --profile alia.yaml --values
  instrulink send "RST" -p /dev/ttyUSB0
  instrulink reset /dev/ttyUSB0`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.instrulink.yaml)")
	rootCmd.PersistentFlags().StringP("profile", "P", "", "instrument profile file (YAML)")
	rootCmd.PersistentFlags().StringP("port", "p", "", "port to connect to, skips discovery")
	rootCmd.PersistentFlags().IntP("baud", "b", 0, "baud rate (default from profile, else 9600)")
	rootCmd.PersistentFlags().DurationP("timeout", "t", 0, "read/write timeout (default from profile, else 2s)")
	rootCmd.PersistentFlags().String("probe", "", "identity probe command sent during discovery")
	rootCmd.PersistentFlags().String("expect", "", "expected reply to the identity probe")
	rootCmd.PersistentFlags().String("match", "", "how to match the expected reply: exact, prefix, contains, pattern")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().String("log-file", "", "log to this file (rotated) instead of stderr")

	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("probe", rootCmd.PersistentFlags().Lookup("probe"))
	viper.BindPFlag("expect", rootCmd.PersistentFlags().Lookup("expect"))
	viper.BindPFlag("match", rootCmd.PersistentFlags().Lookup("match"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".instrulink" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".instrulink")
	}

	viper.SetEnvPrefix("instrulink")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildLink assembles a Link from the profile (when given) overlaid
// with flag/config/env settings. The returned port is the pinned
// endpoint, "" when the caller should discover.
func buildLink() (*instrulink.Link, string, error) {
	var opts []instrulink.Option
	var port string

	if profilePath := viper.GetString("profile"); profilePath != "" {
		prof, err := profile.Load(profilePath)
		if err != nil {
			return nil, "", err
		}
		opts, err = prof.Options()
		if err != nil {
			return nil, "", err
		}
		port = prof.Port
	}

	if p := viper.GetString("port"); p != "" {
		port = p
	}
	if baud := viper.GetInt("baud"); baud > 0 {
		opts = append(opts, instrulink.WithBaudRate(baud))
	}
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		opts = append(opts,
			instrulink.WithReadTimeout(timeout),
			instrulink.WithWriteTimeout(timeout))
	}
	if mem := viper.GetString("memory"); mem != "" {
		opts = append(opts, instrulink.WithMemoryFile(mem))
	}
	if probe := viper.GetString("probe"); probe != "" {
		id := instrulink.Identity{Probe: probe}
		if expect := viper.GetString("expect"); expect != "" {
			m, err := profile.BuildMatcher(viper.GetString("match"), expect)
			if err != nil {
				return nil, "", err
			}
			id.Expect = m
		}
		opts = append(opts, instrulink.WithIdentity(id))
	}
	opts = append(opts, instrulink.WithLogger(appLogger()))

	link, err := instrulink.New(opts...)
	if err != nil {
		return nil, "", err
	}
	return link, port, nil
}

// connect runs the discovery appropriate for the configuration: a
// pinned port connects directly, otherwise AutoConnect scans.
func connect(link *instrulink.Link, port string) error {
	if port != "" {
		return link.ConnectAtPort(port)
	}
	return link.AutoConnect()
}

// exitConfig reports a configuration/usage problem (exit 2).
func exitConfig(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}

// exitComm reports a communication failure (exit 1).
func exitComm(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
