// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/recorder"
)

var errNoRecordPath = errors.New("no session database: use --record or record.path")

var replayCmd = &cobra.Command{
	Use:   "replay <session> [port]",
	Short: "Replay a recorded simulator session onto a serial port",
	Long: `Write the frames of a recorded session to a serial port or WebSocket, at the
interval they were recorded with (or --interval).

Sessions are recorded with "vikingsim simulate --record runs.db" and listed
with "vikingsim sessions --record runs.db".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReplay,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded simulator sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(sessionsCmd)
	addSerialFlags(replayCmd)
	replayCmd.Flags().Float64VarP(&intervalSeconds, "interval", "i", 2.0, "Seconds between frames (default: recorded interval)")
}

func openRecorder(cfg *Config) (*recorder.Recorder, error) {
	if cfg.Record.Path == "" {
		return nil, errNoRecordPath
	}
	if _, err := os.Stat(cfg.Record.Path); err != nil {
		return nil, fmt.Errorf("session database: %w", err)
	}
	return recorder.Open(cfg.Record.Path)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[1:])
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	info, err := rec.Session(args[0])
	if err != nil {
		return err
	}

	// Frames go out in the protocol they were recorded in
	cfg.Simulation.Protocol = info.Protocol
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("session %s: %w", info.ID, err)
	}

	interval := info.Interval()
	if cmd.Flags().Changed("interval") {
		interval = cfg.interval()
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Vikingsim - Session Replay\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Session: %s (%d frames, %s)\n", info.ID, info.Frames, info.Protocol)
	fmt.Printf("Interval: %v\n", interval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := rec.Replay(ctx, info.ID, conn, interval)
	if err != nil {
		return fmt.Errorf("replay failed after %d frames: %w", n, err)
	}
	logger.Info("replay finished", "session", info.ID, "frames", n)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, nil)
	if err != nil {
		return err
	}

	rec, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	infos, err := rec.Sessions()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintf(out, "No sessions recorded\n")
		return nil
	}

	fmt.Fprintf(out, "%-24s %-20s %-7s %8s %8s %6s %s\n", "ID", "STARTED", "PROTO", "INTERVAL", "FRAMES", "TARGET", "SEED")
	for _, info := range infos {
		fmt.Fprintf(out, "%-24s %-20s %-7s %8v %8d %6d %d\n",
			info.ID,
			info.Started().Local().Format("2006-01-02 15:04:05"),
			info.Protocol,
			info.Interval(),
			info.Frames,
			info.Target,
			info.Seed,
		)
	}
	return nil
}
