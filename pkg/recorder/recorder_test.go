// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package recorder

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/simulator"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

func openTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return r, path
}

// recordRun runs a short simulation into a new session
func recordRun(t *testing.T, r *Recorder, id string, started time.Time, ticks uint64) *Session {
	t.Helper()
	session, err := r.StartSession(SessionInfo{
		ID:          id,
		StartedUnix: started.UnixNano(),
		Protocol:    string(vikingbio.ProtocolBinary),
		IntervalMs:  1,
		Seed:        99,
		Target:      burner.DefaultTargetTemperature,
	})
	if err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}

	sim, err := simulator.New(simulator.Config{
		Interval:  time.Millisecond,
		Encoder:   vikingbio.BinaryEncoder{},
		Source:    burner.NewSource(99),
		MaxTicks:  ticks,
		Observers: []simulator.Observer{session},
	})
	if err != nil {
		t.Fatalf("simulator.New() error: %v", err)
	}
	if err := sim.Run(context.Background(), nopCloser{&bytes.Buffer{}}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return session
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestRecorder_RecordAndRead(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()

	recordRun(t, r, "run-1", time.Unix(1000, 0), 10)

	records, err := r.Records("run-1")
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("got %d records, want 10", len(records))
	}

	// Records replay the model exactly
	src := burner.NewSource(99)
	state := burner.NewState(burner.DefaultTargetTemperature)
	for i, rec := range records {
		var ev burner.Event
		state, ev = burner.Step(state, src)
		if rec.Tick != uint64(i+1) {
			t.Errorf("record %d tick = %d", i, rec.Tick)
		}
		if rec.FlameOn != state.FlameOn || rec.FanSpeed != state.FanSpeed || rec.Temperature != state.Temperature {
			t.Errorf("record %d = %+v, want state %+v", i, rec, state)
		}
		if ev != burner.EventNone && rec.Event != ev.String() {
			t.Errorf("record %d event = %q, want %q", i, rec.Event, ev)
		}
		if !bytes.Equal(rec.Frame, vikingbio.EncodeBinary(state.Data())) {
			t.Errorf("record %d frame % X", i, rec.Frame)
		}
	}
}

func TestRecorder_SessionsPersist(t *testing.T) {
	r, path := openTestRecorder(t)
	recordRun(t, r, "later", time.Unix(2000, 0), 3)
	recordRun(t, r, "earlier", time.Unix(1000, 0), 5)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer r.Close()

	sessions, err := r.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "earlier" || sessions[1].ID != "later" {
		t.Errorf("sessions not ordered by start: %s, %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Frames != 5 || sessions[1].Frames != 3 {
		t.Errorf("frame counts = %d, %d; want 5, 3", sessions[0].Frames, sessions[1].Frames)
	}
	if sessions[0].Protocol != "binary" || sessions[0].Seed != 99 || sessions[0].Interval() != time.Millisecond {
		t.Errorf("metadata not preserved: %+v", sessions[0])
	}
	if !sessions[0].Started().Equal(time.Unix(1000, 0)) {
		t.Errorf("Started() = %v", sessions[0].Started())
	}
}

func TestRecorder_DuplicateSession(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()

	if _, err := r.StartSession(SessionInfo{ID: "dup"}); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	if _, err := r.StartSession(SessionInfo{ID: "dup"}); err == nil {
		t.Error("duplicate session ID should fail")
	}
}

func TestRecorder_GeneratedID(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()

	started := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	s, err := r.StartSession(SessionInfo{StartedUnix: started.UnixNano()})
	if err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	if s.ID() != "20260304T050607.890Z" {
		t.Errorf("ID() = %s", s.ID())
	}
}

func TestRecorder_NotFound(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()

	if _, err := r.Records("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Records() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := r.Replay(context.Background(), "missing", &bytes.Buffer{}, 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Replay() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRecorder_Replay(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()
	recordRun(t, r, "run", time.Unix(1000, 0), 4)

	records, err := r.Records("run")
	if err != nil {
		t.Fatal(err)
	}
	var want []byte
	for _, rec := range records {
		want = append(want, rec.Frame...)
	}

	var out bytes.Buffer
	n, err := r.Replay(context.Background(), "run", &out, time.Millisecond)
	if err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if n != 4 {
		t.Errorf("Replay() wrote %d frames, want 4", n)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("replayed bytes differ from recording")
	}
}

func TestRecorder_ReplayCancelled(t *testing.T) {
	r, _ := openTestRecorder(t)
	defer r.Close()
	recordRun(t, r, "run", time.Unix(1000, 0), 4)

	ctx, cancel := context.WithCancel(context.Background())
	w := &cancelAfterWrite{cancel: cancel}

	n, err := r.Replay(ctx, "run", w, time.Hour)
	if err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if n != 1 || w.writes != 1 {
		t.Errorf("Replay() wrote %d frames (%d writes), want 1", n, w.writes)
	}
}

type cancelAfterWrite struct {
	cancel context.CancelFunc
	writes int
}

func (c *cancelAfterWrite) Write(p []byte) (int, error) {
	c.writes++
	c.cancel()
	return len(p), nil
}
