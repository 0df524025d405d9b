// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

var (
	discoveryTimeout int
	discoveryProbe   bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List serial ports and find the ones carrying burner telemetry",
	Long: `List the serial ports on this machine.

With --probe, each port is opened at --baudrate and watched for --timeout
seconds; ports that deliver a valid frame in the selected protocol are
reported along with the first frame seen.

Examples:
  vikingsim discovery
  vikingsim discovery --probe --protocol text --timeout 5

Exit codes:
  0 - At least one port found (with --probe: at least one burner found)
  1 - Nothing found`,
	Args: cobra.NoArgs,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	addSerialFlags(discoveryCmd)
	discoveryCmd.Flags().StringVarP(&protocolName, "protocol", "p", "binary", "Protocol to probe for (binary, text)")
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 3, "Seconds to listen on each port when probing")
	discoveryCmd.Flags().BoolVar(&discoveryProbe, "probe", false, "Open each port and wait for a frame")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, nil)
	if err != nil {
		return err
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)

	fmt.Printf("Vikingsim - Port Discovery\n")
	fmt.Printf("Ports found: %d\n\n", len(ports))

	if !discoveryProbe {
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
		if len(ports) == 0 {
			os.Exit(1)
		}
		return nil
	}

	timeout := time.Duration(discoveryTimeout) * time.Second
	found := 0
	for _, p := range ports {
		fmt.Printf("Probing %s @ %d baud (%s)... ", p, cfg.Serial.Baud, cfg.protocol())
		frame, err := probePort(p, cfg.Serial.Baud, cfg.protocol(), timeout)
		switch {
		case err != nil:
			fmt.Printf("error: %v\n", err)
		case frame == nil:
			fmt.Printf("no frames\n")
		default:
			found++
			fmt.Printf("FOUND\n")
			fmt.Print("  ", vikingbio.FormatFrame(frame))
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Burners found: %d\n", found)
	if found == 0 {
		os.Exit(1)
	}
	return nil
}

// probePort returns the first valid frame seen on the port within timeout,
// or nil if none arrived
func probePort(name string, baud int, protocol vikingbio.Protocol, timeout time.Duration) (*vikingbio.Frame, error) {
	decoder, err := vikingbio.NewDecoder(protocol)
	if err != nil {
		return nil, err
	}
	conn, err := OpenSerialConnection(name, baud)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return waitForFrame(conn, decoder, timeout)
}

// waitForFrame reads r until a frame decodes, the reader fails or timeout
// elapses. r is closed on timeout to unblock the reader goroutine.
func waitForFrame(r io.ReadCloser, decoder vikingbio.Decoder, timeout time.Duration) (*vikingbio.Frame, error) {
	frameChan := make(chan *vikingbio.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 128)
		for {
			n, err := r.Read(buf)
			for i := 0; i < n; i++ {
				if frame, _ := decoder.DecodeByte(buf[i]); frame != nil {
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
		return frame, nil
	case err := <-errChan:
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	case <-time.After(timeout):
		r.Close()
		return nil, nil
	}
}
