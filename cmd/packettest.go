// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test [port]",
	Short: "Test connection by waiting for a valid Viking Bio frame",
	Long: `Wait for a valid Viking Bio frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
frame in the selected protocol. Bytes that do not form a frame are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the wiring between the simulator and the bridge.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	addSerialFlags(packetTestCmd)
	packetTestCmd.Flags().StringVarP(&protocolName, "protocol", "p", "binary", "Protocol to expect (binary, text)")
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	decoder, err := vikingbio.NewDecoder(cfg.protocol())
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Vikingsim - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid %s frame...\n\n", cfg.protocol())

	frameChan := make(chan *vikingbio.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 128)
		invalidBytes := 0
		for {
			n, err := conn.Read(buf)
			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					invalidBytes++
					continue
				}
				if frame != nil {
					if invalidBytes > 0 {
						fmt.Printf("(skipped %d invalid bytes before sync)\n", invalidBytes)
					}
					frameChan <- frame
					return
				}
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Protocol: %s\n", frame.Protocol)
		fmt.Printf("  Flame: %s\n", vikingbio.FormatFlame(frame.Data.FlameDetected))
		fmt.Printf("  Fan: %d%%\n", frame.Data.FanSpeed)
		fmt.Printf("  Temperature: %d°C\n", frame.Data.Temperature)
		fmt.Printf("  Raw: %s\n", vikingbio.FormatRaw(frame.Protocol, frame.Raw))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
