// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/recorder"
	"github.com/Thermoquad/vikingsim/pkg/simulator"
	"github.com/Thermoquad/vikingsim/pkg/telemetry"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

var (
	protocolName      string
	intervalSeconds   float64
	targetTemperature int
	simSeed           int64
	simCount          uint64
	mqttBroker        string
	mqttTopicPrefix   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [port]",
	Short: "Emulate a Viking Bio 20 burner on a serial port",
	Long: `Continuously emit Viking Bio 20 telemetry frames describing a simulated
burner that ignites, ramps its fan, heats toward a target temperature and
occasionally goes out.

Protocols:
  binary  6-byte frames: AA <flags> <fan> <temp hi> <temp lo> 55
  text    lines of the form F:1,S:45,T:75

Examples:
  vikingsim simulate /dev/ttyUSB0
  vikingsim simulate /dev/ttyUSB0 -p text -i 0.5
  vikingsim simulate /dev/ttyUSB0 --seed 42 --count 100 --record runs.db
  vikingsim simulate --url ws://bridge.local/viking --mqtt-broker tcp://localhost:1883

The simulator stops cleanly on Ctrl+C or after --count frames.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	addSerialFlags(simulateCmd)
	simulateCmd.Flags().StringVarP(&protocolName, "protocol", "p", "binary", "Protocol to emit (binary, text)")
	simulateCmd.Flags().Float64VarP(&intervalSeconds, "interval", "i", 2.0, "Seconds between frames")
	simulateCmd.Flags().IntVar(&targetTemperature, "target", burner.DefaultTargetTemperature, "Target temperature in °C")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed for a reproducible run (random when unset)")
	simulateCmd.Flags().Uint64Var(&simCount, "count", 0, "Stop after this many frames (0 = run until interrupted)")
	simulateCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "Mirror samples to this MQTT broker (tcp://host:1883)")
	simulateCmd.Flags().StringVar(&mqttTopicPrefix, "mqtt-topic-prefix", telemetry.DefaultTopicPrefix, "MQTT topic prefix")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	protocol := cfg.protocol()
	encoder, err := vikingbio.NewEncoder(protocol)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if cfg.Simulation.Seed != nil {
		seed = *cfg.Simulation.Seed
	} else {
		logger.Info("using random seed", "seed", seed)
	}

	observers, closeObservers, err := openObservers(cfg, seed, logger)
	if err != nil {
		return err
	}
	defer closeObservers()

	sim, err := simulator.New(simulator.Config{
		Interval:          cfg.interval(),
		TargetTemperature: cfg.Simulation.TargetTemperature,
		Encoder:           encoder,
		Source:            burner.NewSource(seed),
		MaxTicks:          cfg.Simulation.Count,
		Logger:            logger,
		Observers:         observers,
	})
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Vikingsim - Burner Simulator\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Protocol: %s\n", protocol)
	fmt.Printf("Interval: %v\n", cfg.interval())
	fmt.Printf("Target: %d°C\n", cfg.Simulation.TargetTemperature)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run closes conn on every exit path
	if err := sim.Run(ctx, conn); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Printf("\nSimulation stopped after %d frames\n", sim.Ticks())
	return nil
}

// openObservers sets up the optional recorder and MQTT mirror. The returned
// func releases whatever was opened.
func openObservers(cfg *Config, seed int64, logger *slog.Logger) ([]simulator.Observer, func(), error) {
	var observers []simulator.Observer
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Record.Path != "" {
		rec, err := recorder.Open(cfg.Record.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := rec.Close(); err != nil {
				logger.Warn("close recorder", "err", err)
			}
		})

		session, err := rec.StartSession(recorder.SessionInfo{
			StartedUnix: time.Now().UnixNano(),
			Protocol:    cfg.Simulation.Protocol,
			IntervalMs:  cfg.interval().Milliseconds(),
			Seed:        seed,
			Target:      cfg.Simulation.TargetTemperature,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info("recording session", "id", session.ID(), "path", cfg.Record.Path)
		observers = append(observers, session)
	}

	if cfg.MQTT.Broker != "" {
		pub, err := telemetry.NewRealPublisher(telemetry.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close MQTT publisher", "err", err)
			}
		})
		observers = append(observers, pub)
	}

	return observers, closeAll, nil
}
