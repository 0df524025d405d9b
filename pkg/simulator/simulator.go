// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package simulator drives the burner model on a fixed interval and writes
// each resulting status report to a transport.
package simulator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// DefaultInterval is the time between frames
const DefaultInterval = 2 * time.Second

// Sample is what a single tick produced
type Sample struct {
	Tick     uint64
	Time     time.Time
	State    burner.State
	Event    burner.Event
	Protocol vikingbio.Protocol
	Frame    []byte
}

// Observer receives every sample after it has been written to the transport.
// Observer errors are logged and do not stop the simulation.
type Observer interface {
	Observe(s Sample) error
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(s Sample) error

// Observe calls f(s)
func (f ObserverFunc) Observe(s Sample) error {
	return f(s)
}

// Config holds simulator settings
type Config struct {
	Interval          time.Duration
	TargetTemperature int
	Encoder           vikingbio.Encoder
	Source            burner.Source
	MaxTicks          uint64 // stop after this many frames; 0 runs until cancelled
	Logger            *slog.Logger
	Observers         []Observer
}

// Simulator owns the burner state. It is not safe for concurrent use; Run
// is the only mutator.
type Simulator struct {
	cfg    Config
	state  burner.State
	tick   uint64
	logger *slog.Logger
	now    func() time.Time
}

// New creates a simulator with a cold, idle burner
func New(cfg Config) (*Simulator, error) {
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("simulator: encoder is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("simulator: randomness source is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TargetTemperature == 0 {
		cfg.TargetTemperature = burner.DefaultTargetTemperature
	}
	if err := burner.ValidateTarget(cfg.TargetTemperature); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Simulator{
		cfg:    cfg,
		state:  burner.NewState(cfg.TargetTemperature),
		logger: logger.With("component", "simulator"),
		now:    time.Now,
	}, nil
}

// State returns a copy of the current burner state
func (s *Simulator) State() burner.State {
	return s.state
}

// Ticks returns the number of ticks taken so far
func (s *Simulator) Ticks() uint64 {
	return s.tick
}

// Step advances the model by one tick and encodes the new state
func (s *Simulator) Step() Sample {
	var ev burner.Event
	s.state, ev = burner.Step(s.state, s.cfg.Source)
	s.tick++

	return Sample{
		Tick:     s.tick,
		Time:     s.now(),
		State:    s.state,
		Event:    ev,
		Protocol: s.cfg.Encoder.Protocol(),
		Frame:    s.cfg.Encoder.Encode(s.state.Data()),
	}
}

// Run ticks until ctx is cancelled, MaxTicks frames have been sent or a
// write fails. The transport is closed on every return path. Cancellation
// and reaching MaxTicks return nil; write failures are returned as-is and
// are not retried.
func (s *Simulator) Run(ctx context.Context, transport io.WriteCloser) (err error) {
	defer func() {
		if cerr := transport.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("close transport: %w", cerr)
			} else {
				s.logger.Warn("close transport", "err", cerr)
			}
		}
	}()

	s.logger.Info("simulation started",
		"protocol", s.cfg.Encoder.Protocol(),
		"interval", s.cfg.Interval.String(),
		"target", s.cfg.TargetTemperature)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		// Never start a tick after cancellation
		if ctx.Err() != nil {
			s.logger.Info("simulation stopped", "ticks", s.tick)
			return nil
		}

		sample := s.Step()
		if _, err := transport.Write(sample.Frame); err != nil {
			return fmt.Errorf("write frame %d: %w", sample.Tick, err)
		}
		s.report(sample)

		if s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks {
			s.logger.Info("simulation complete", "ticks", s.tick)
			return nil
		}

		timer.Reset(s.cfg.Interval)
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", "ticks", s.tick)
			return nil
		case <-timer.C:
		}
	}
}

func (s *Simulator) report(sample Sample) {
	switch sample.Event {
	case burner.EventIgnition:
		s.logger.Info("flame ignited", "tick", sample.Tick)
	case burner.EventExtinguish:
		s.logger.Info("flame extinguished", "tick", sample.Tick, "temperature", sample.State.Temperature)
	}
	s.logger.Debug("sent frame",
		"tick", sample.Tick,
		"protocol", sample.Protocol,
		"state", vikingbio.FormatData(sample.State.Data()),
		"raw", vikingbio.FormatRaw(sample.Protocol, sample.Frame))

	for _, o := range s.cfg.Observers {
		if err := o.Observe(sample); err != nil {
			s.logger.Warn("observer failed", "tick", sample.Tick, "err", err)
		}
	}
}
