// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recorder stores simulator sessions in a bbolt database so they can
// be listed and replayed later. Records are CBOR encoded.
package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/simulator"
)

var (
	bucketSessions = []byte("sessions")
	bucketFrames   = []byte("frames")
	keyMeta        = []byte("meta")
)

// ErrSessionNotFound is returned when a session ID does not exist
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo describes a recorded simulator run
type SessionInfo struct {
	ID          string `cbor:"1,keyasint"`
	StartedUnix int64  `cbor:"2,keyasint"` // nanoseconds
	Protocol    string `cbor:"3,keyasint"`
	IntervalMs  int64  `cbor:"4,keyasint"`
	Seed        int64  `cbor:"5,keyasint"`
	Target      int    `cbor:"6,keyasint"`

	// Frames is filled in when listing sessions
	Frames int `cbor:"-"`
}

// Started returns the session start time
func (s SessionInfo) Started() time.Time {
	return time.Unix(0, s.StartedUnix)
}

// Interval returns the recorded frame interval
func (s SessionInfo) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// Record is one recorded tick
type Record struct {
	Tick        uint64 `cbor:"1,keyasint"`
	TimeUnix    int64  `cbor:"2,keyasint"` // nanoseconds
	FlameOn     bool   `cbor:"3,keyasint"`
	FanSpeed    int    `cbor:"4,keyasint"`
	Temperature int    `cbor:"5,keyasint"`
	Event       string `cbor:"6,keyasint,omitempty"`
	Frame       []byte `cbor:"7,keyasint"`
}

// Recorder wraps the session database
type Recorder struct {
	db *bolt.DB
}

// Open opens or creates a session database
func Open(path string) (*Recorder, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database
func (r *Recorder) Close() error {
	return r.db.Close()
}

// StartSession creates a new, empty session. An empty ID is derived from
// the start time.
func (r *Recorder) StartSession(info SessionInfo) (*Session, error) {
	if info.StartedUnix == 0 {
		info.StartedUnix = time.Now().UnixNano()
	}
	if info.ID == "" {
		info.ID = info.Started().UTC().Format("20060102T150405.000Z")
	}

	meta, err := cbor.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encode session meta: %w", err)
	}

	err = r.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		if sessions.Bucket([]byte(info.ID)) != nil {
			return fmt.Errorf("session %s already exists", info.ID)
		}
		b, err := sessions.CreateBucket([]byte(info.ID))
		if err != nil {
			return err
		}
		if _, err := b.CreateBucket(bucketFrames); err != nil {
			return err
		}
		return b.Put(keyMeta, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	return &Session{r: r, id: info.ID}, nil
}

// Sessions lists all sessions, oldest first
func (r *Recorder) Sessions() ([]SessionInfo, error) {
	var infos []SessionInfo
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEachBucket(func(k []byte) error {
			b := tx.Bucket(bucketSessions).Bucket(k)
			var info SessionInfo
			if err := cbor.Unmarshal(b.Get(keyMeta), &info); err != nil {
				return fmt.Errorf("decode session %s: %w", k, err)
			}
			info.Frames = b.Bucket(bucketFrames).Stats().KeyN
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedUnix < infos[j].StartedUnix
	})
	return infos, nil
}

// Session returns the metadata of one session
func (r *Recorder) Session(id string) (SessionInfo, error) {
	var info SessionInfo
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions).Bucket([]byte(id))
		if b == nil {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		if err := cbor.Unmarshal(b.Get(keyMeta), &info); err != nil {
			return fmt.Errorf("decode session %s: %w", id, err)
		}
		info.Frames = b.Bucket(bucketFrames).Stats().KeyN
		return nil
	})
	return info, err
}

// Records returns the records of a session in tick order
func (r *Recorder) Records(id string) ([]Record, error) {
	var records []Record
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions).Bucket([]byte(id))
		if b == nil {
			return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return b.Bucket(bucketFrames).ForEach(func(k, v []byte) error {
			var rec Record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Replay writes a session's frames to w, pausing interval between frames
// (the recorded interval when interval <= 0). Cancellation stops the
// replay without error. Returns the number of frames written.
func (r *Recorder) Replay(ctx context.Context, id string, w io.Writer, interval time.Duration) (int, error) {
	info, err := r.Session(id)
	if err != nil {
		return 0, err
	}
	records, err := r.Records(id)
	if err != nil {
		return 0, err
	}
	if interval <= 0 {
		interval = info.Interval()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i, rec := range records {
		if ctx.Err() != nil {
			return i, nil
		}
		if _, err := w.Write(rec.Frame); err != nil {
			return i, fmt.Errorf("write frame %d: %w", rec.Tick, err)
		}
		if i == len(records)-1 {
			break
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return i + 1, nil
		case <-timer.C:
		}
	}
	return len(records), nil
}

// Session appends records to one recorded run. It implements
// simulator.Observer.
type Session struct {
	r  *Recorder
	id string
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Observe stores a simulator sample
func (s *Session) Observe(sample simulator.Sample) error {
	rec := Record{
		Tick:        sample.Tick,
		TimeUnix:    sample.Time.UnixNano(),
		FlameOn:     sample.State.FlameOn,
		FanSpeed:    sample.State.FanSpeed,
		Temperature: sample.State.Temperature,
		Frame:       sample.Frame,
	}
	if sample.Event != burner.EventNone {
		rec.Event = sample.Event.String()
	}
	return s.Append(rec)
}

// Append stores a record keyed by its tick
func (s *Session) Append(rec Record) error {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, rec.Tick)

	return s.r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions).Bucket([]byte(s.id))
		if b == nil {
			return fmt.Errorf("session %s: %w", s.id, ErrSessionNotFound)
		}
		return b.Bucket(bucketFrames).Put(key, data)
	})
}
