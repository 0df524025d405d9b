// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/pin"
)

var derivePinCmd = &cobra.Command{
	Use:   "derive_pin <mac>",
	Short: "Derive the Matter setup PIN for a device MAC address",
	Long: `Derive the 8-digit commissioning PIN the bridge firmware computes from its
MAC address, so a device can be commissioned without reading its console.

The MAC may use colons, dashes, spaces or no separators:
  vikingsim derive_pin AA:BB:CC:DD:EE:FF
  vikingsim derive_pin aabbccddeeff`,
	Args: cobra.ExactArgs(1),
	RunE: runDerivePin,
}

func init() {
	rootCmd.AddCommand(derivePinCmd)
}

func runDerivePin(cmd *cobra.Command, args []string) error {
	code, mac, err := pin.DeriveString(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Device MAC:     %s\n", mac)
	fmt.Fprintf(out, "Setup PIN Code: %s\n", code)
	return nil
}
