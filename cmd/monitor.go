// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [port]",
	Short: "Decode and display Viking Bio frames as they arrive",
	Long: `Continuously decode Viking Bio 20 frames from a serial port or WebSocket,
the way the bridge firmware parses them.

Each frame is validated and anomalies are highlighted:
  - fan speed above 100%
  - error code set in the flags byte
  - temperature below ambient

Decode errors before the first valid frame are counted as sync noise rather
than reported. Statistics are printed every --stats-interval seconds.

Use --tui for a live dashboard.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addSerialFlags(monitorCmd)
	monitorCmd.Flags().StringVarP(&protocolName, "protocol", "p", "binary", "Protocol to decode (binary, text)")
	monitorCmd.Flags().BoolVar(&showAll, "show-all", true, "Show valid frames (false shows only errors and anomalies)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI")
}

// Messages produced by the frame pump. They double as bubbletea messages.
type frameMsg struct {
	frame            *vikingbio.Frame
	decodeErr        error
	validationErrors []vikingbio.ValidationError
}

type syncMsg struct {
	invalidBytes int
}

type connClosedMsg struct {
	err error
}

// pumpFrames reads r until it fails, decoding bytes and passing results to
// send. Decode errors before the first valid frame are only counted. The
// read error is returned; io.EOF and ErrConnectionClosed are reported as nil.
func pumpFrames(r io.Reader, decoder vikingbio.Decoder, send func(tea.Msg)) error {
	buf := make([]byte, 128)
	synchronized := false
	invalidBytesBeforeSync := 0

	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			switch {
			case decodeErr != nil:
				if synchronized {
					send(frameMsg{decodeErr: decodeErr})
				} else {
					invalidBytesBeforeSync++
				}
			case frame != nil:
				if !synchronized {
					synchronized = true
					send(syncMsg{invalidBytes: invalidBytesBeforeSync})
				}
				send(frameMsg{
					frame:            frame,
					validationErrors: vikingbio.ValidateData(frame.Data),
				})
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive, got %d", statsInterval)
	}

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
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Unblock the reader on shutdown
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if useTUI {
		return runMonitorTUI(ctx, conn, decoder, connInfo, cfg.protocol())
	}
	return runMonitorText(ctx, conn, decoder, connInfo, cfg.protocol())
}

func runMonitorTUI(ctx context.Context, conn Connection, decoder vikingbio.Decoder, connInfo string, protocol vikingbio.Protocol) error {
	m := initialModel(connInfo, protocol, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())

	go func() {
		err := pumpFrames(conn, decoder, p.Send)
		if ctx.Err() != nil {
			err = nil
		}
		p.Send(connClosedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runMonitorText(ctx context.Context, conn Connection, decoder vikingbio.Decoder, connInfo string, protocol vikingbio.Protocol) error {
	fmt.Printf("Vikingsim - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Protocol: %s\n", protocol)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := vikingbio.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	msgs := make(chan tea.Msg, 16)
	done := make(chan error, 1)
	go func() {
		done <- pumpFrames(conn, decoder, func(msg tea.Msg) { msgs <- msg })
	}()

	for {
		select {
		case msg := <-msgs:
			printMonitorMsg(msg, stats)

		case err := <-done:
			// Drain what the pump queued before it stopped
			for len(msgs) > 0 {
				printMonitorMsg(<-msgs, stats)
			}
			fmt.Printf("\n%s\n", stats)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read error: %w", err)
			}
			fmt.Printf("Connection closed\n")
			return nil

		case <-statsTicker.C:
			stats.CalculateRates()
			fmt.Printf("\n%s\n\n", stats)
		}
	}
}

func printMonitorMsg(msg tea.Msg, stats *vikingbio.Statistics) {
	switch msg := msg.(type) {
	case syncMsg:
		if msg.invalidBytes > 0 {
			fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", msg.invalidBytes)
		} else {
			fmt.Printf("[SYNC] Synchronized\n\n")
		}

	case frameMsg:
		stats.Update(msg.frame, msg.decodeErr, msg.validationErrors)
		if msg.decodeErr != nil {
			timestamp := time.Now().Format("15:04:05.000")
			fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, msg.decodeErr)
			return
		}
		if len(msg.validationErrors) > 0 {
			printValidationErrors(msg.frame, msg.validationErrors)
			return
		}
		if showAll {
			fmt.Print(vikingbio.FormatFrame(msg.frame))
		}
	}
}

// printValidationErrors prints the anomalies found in a frame
func printValidationErrors(frame *vikingbio.Frame, verrs []vikingbio.ValidationError) {
	fmt.Print(vikingbio.FormatFrame(frame))
	for i, verr := range verrs {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, verr.Message)
	}
}
