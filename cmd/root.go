// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Configuration flags
	configPath string
	logLevel   string
	logFormat  string
	recordPath string

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Serial connection flags
	baudRate int
)

var rootCmd = &cobra.Command{
	Use:   "vikingsim",
	Short: "Viking Bio 20 burner serial simulator",
	Long: `Vikingsim - A CLI tool that imitates the serial telemetry of a Viking Bio 20
pellet burner so the Matter bridge can be exercised without hardware.

The simulator emits either the 6-byte binary protocol or the text protocol
on a serial port (or a WebSocket), and the companion commands decode the
same protocols on the receiving side.

Connection modes:
  Serial:    vikingsim simulate /dev/ttyUSB0 [--baudrate 9600]
  WebSocket: vikingsim simulate --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the VIKINGSIM_PASSWORD
environment variable, or prompted interactively if not set.

Settings can also be read from a YAML file with --config; flags given on the
command line take precedence.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	// Configuration flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&recordPath, "record", "", "Session database for recording and replay")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// addSerialFlags registers the serial line flags on a command
func addSerialFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&baudRate, "baudrate", "b", 9600, "Baud rate (serial only)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
