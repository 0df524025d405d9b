// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package simulator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// fakeTransport records writes for test assertions
type fakeTransport struct {
	writes     [][]byte
	writeErr   error
	failAfter  int // fail writes once this many succeeded (when writeErr set)
	closeErr   error
	closed     bool
	closeCalls int
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("write on closed transport")
	}
	if f.writeErr != nil && len(f.writes) >= f.failAfter {
		return 0, f.writeErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	f.writes = append(f.writes, buf)
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	f.closeCalls++
	return f.closeErr
}

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	if cfg.Encoder == nil {
		cfg.Encoder = vikingbio.BinaryEncoder{}
	}
	if cfg.Source == nil {
		cfg.Source = burner.NewSource(42)
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	sim, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return sim
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Source: burner.NewSource(1)}); err == nil {
		t.Error("New without encoder should fail")
	}
	if _, err := New(Config{Encoder: vikingbio.TextEncoder{}}); err == nil {
		t.Error("New without source should fail")
	}
	if _, err := New(Config{Encoder: vikingbio.TextEncoder{}, Source: burner.NewSource(1), TargetTemperature: 10}); err == nil {
		t.Error("New with target below ambient should fail")
	}

	sim, err := New(Config{Encoder: vikingbio.TextEncoder{}, Source: burner.NewSource(1)})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if sim.cfg.Interval != DefaultInterval {
		t.Errorf("default interval = %v, want %v", sim.cfg.Interval, DefaultInterval)
	}
	if got := sim.State(); got != burner.NewState(burner.DefaultTargetTemperature) {
		t.Errorf("initial state = %+v", got)
	}
}

func TestRun_MaxTicks(t *testing.T) {
	sim := newTestSimulator(t, Config{MaxTicks: 5})
	transport := &fakeTransport{}

	if err := sim.Run(context.Background(), transport); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(transport.writes) != 5 {
		t.Errorf("got %d writes, want 5", len(transport.writes))
	}
	if !transport.closed || transport.closeCalls != 1 {
		t.Errorf("transport closed=%v calls=%d, want closed once", transport.closed, transport.closeCalls)
	}
	for i, w := range transport.writes {
		if len(w) != vikingbio.FrameSize || w[0] != vikingbio.StartByte || w[5] != vikingbio.EndByte {
			t.Errorf("write %d is not a binary frame: % X", i, w)
		}
	}
	if sim.Ticks() != 5 {
		t.Errorf("Ticks() = %d, want 5", sim.Ticks())
	}
}

func TestRun_CancelInterruptsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	sim := newTestSimulator(t, Config{
		Interval: time.Hour,
		Observers: []Observer{ObserverFunc(func(s Sample) error {
			seen++
			cancel()
			return nil
		})},
	})
	transport := &fakeTransport{}

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx, transport) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancellation should not be an error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return promptly after cancellation")
	}

	if len(transport.writes) != 1 || seen != 1 {
		t.Errorf("writes=%d observed=%d, want 1 and 1", len(transport.writes), seen)
	}
	if !transport.closed {
		t.Error("transport not closed after cancellation")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := newTestSimulator(t, Config{})
	transport := &fakeTransport{}

	if err := sim.Run(ctx, transport); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(transport.writes) != 0 {
		t.Errorf("got %d writes after cancellation, want 0", len(transport.writes))
	}
	if sim.Ticks() != 0 {
		t.Errorf("a tick was started after cancellation")
	}
	if !transport.closed {
		t.Error("transport not closed")
	}
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	writeErr := errors.New("device unplugged")
	sim := newTestSimulator(t, Config{})
	transport := &fakeTransport{writeErr: writeErr, failAfter: 2}

	err := sim.Run(context.Background(), transport)
	if !errors.Is(err, writeErr) {
		t.Fatalf("Run() error = %v, want %v", err, writeErr)
	}
	if len(transport.writes) != 2 {
		t.Errorf("got %d successful writes, want 2 (no retries)", len(transport.writes))
	}
	if !transport.closed {
		t.Error("transport not closed after write failure")
	}
}

func TestRun_CloseErrorReported(t *testing.T) {
	closeErr := errors.New("close failed")
	sim := newTestSimulator(t, Config{MaxTicks: 1})

	err := sim.Run(context.Background(), &fakeTransport{closeErr: closeErr})
	if !errors.Is(err, closeErr) {
		t.Errorf("Run() error = %v, want %v", err, closeErr)
	}
}

func TestRun_ObserverErrorDoesNotStop(t *testing.T) {
	calls := 0
	sim := newTestSimulator(t, Config{
		MaxTicks: 3,
		Observers: []Observer{ObserverFunc(func(s Sample) error {
			calls++
			return errors.New("broker down")
		})},
	})

	if err := sim.Run(context.Background(), &fakeTransport{}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("observer called %d times, want 3", calls)
	}
}

func TestRun_TextProtocol(t *testing.T) {
	sim := newTestSimulator(t, Config{Encoder: vikingbio.TextEncoder{}, MaxTicks: 20})
	transport := &fakeTransport{}

	if err := sim.Run(context.Background(), transport); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	decoder := vikingbio.NewTextDecoder()
	frames := 0
	for _, w := range transport.writes {
		for _, b := range w {
			f, err := decoder.DecodeByte(b)
			if err != nil {
				t.Fatalf("simulator produced undecodable text %q: %v", w, err)
			}
			if f != nil {
				frames++
			}
		}
	}
	if frames != 20 {
		t.Errorf("decoded %d text frames, want 20", frames)
	}
}

func TestStep_MatchesModel(t *testing.T) {
	sim := newTestSimulator(t, Config{Source: burner.NewSource(7)})
	model := burner.NewSource(7)
	state := burner.NewState(burner.DefaultTargetTemperature)

	for i := 0; i < 200; i++ {
		sample := sim.Step()
		var ev burner.Event
		state, ev = burner.Step(state, model)

		if sample.State != state || sample.Event != ev {
			t.Fatalf("tick %d: simulator %+v/%s, model %+v/%s", i, sample.State, sample.Event, state, ev)
		}
		if sample.Tick != uint64(i+1) {
			t.Fatalf("tick counter = %d, want %d", sample.Tick, i+1)
		}
		if !bytes.Equal(sample.Frame, vikingbio.EncodeBinary(state.Data())) {
			t.Fatalf("tick %d: frame % X does not encode state", i, sample.Frame)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	run := func() [][]byte {
		sim := newTestSimulator(t, Config{Source: burner.NewSource(2026), MaxTicks: 100})
		transport := &fakeTransport{}
		if err := sim.Run(context.Background(), transport); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		return transport.writes
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs wrote %d and %d frames", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			t.Fatalf("frame %d differs: % X vs % X", i, a[i], b[i])
		}
	}
}
