// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import (
	"bytes"
	"fmt"
	"time"
)

// Decoder turns a byte stream into frames, one byte at a time
type Decoder interface {
	// DecodeByte returns a completed frame, or nil if the frame is incomplete.
	// Returns an error if the bytes collected so far cannot form a frame.
	DecodeByte(b byte) (*Frame, error)
	Reset()
}

// NewDecoder returns the stream decoder for the given protocol
func NewDecoder(p Protocol) (Decoder, error) {
	switch p {
	case ProtocolBinary:
		return NewBinaryDecoder(), nil
	case ProtocolText:
		return NewTextDecoder(), nil
	default:
		_, err := ParseProtocol(string(p))
		return nil, err
	}
}

// BinaryDecoder synchronizes on StartByte and accepts a frame when the
// sixth byte is EndByte. There is nothing else to check.
type BinaryDecoder struct {
	buffer []byte
}

// NewBinaryDecoder creates a new binary frame decoder
func NewBinaryDecoder() *BinaryDecoder {
	return &BinaryDecoder{buffer: make([]byte, 0, FrameSize)}
}

// Reset drops any partially collected frame
func (d *BinaryDecoder) Reset() {
	d.buffer = d.buffer[:0]
}

// DecodeByte processes a single byte
func (d *BinaryDecoder) DecodeByte(b byte) (*Frame, error) {
	// Waiting for START byte
	if len(d.buffer) == 0 && b != StartByte {
		return nil, nil
	}

	d.buffer = append(d.buffer, b)
	if len(d.buffer) < FrameSize {
		return nil, nil
	}

	if d.buffer[offsetEnd] != EndByte {
		err := fmt.Errorf("missing END byte: expected 0x%02X, got 0x%02X", EndByte, d.buffer[offsetEnd])
		d.resync()
		return nil, err
	}

	raw := make([]byte, FrameSize)
	copy(raw, d.buffer)
	d.Reset()

	data, err := DecodeBinary(raw)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Protocol:  ProtocolBinary,
		Data:      data,
		Raw:       raw,
		Timestamp: time.Now(),
	}, nil
}

// resync keeps the window from the next START byte after the current one
func (d *BinaryDecoder) resync() {
	next := bytes.IndexByte(d.buffer[1:], StartByte)
	if next < 0 {
		d.Reset()
		return
	}
	n := copy(d.buffer, d.buffer[next+1:])
	d.buffer = d.buffer[:n]
}

// DecodeBinary decodes a complete 6-byte frame
func DecodeBinary(frame []byte) (Data, error) {
	if len(frame) != FrameSize {
		return Data{}, fmt.Errorf("invalid frame length: %d (want %d)", len(frame), FrameSize)
	}
	if frame[offsetStart] != StartByte {
		return Data{}, fmt.Errorf("missing START byte: got 0x%02X", frame[offsetStart])
	}
	if frame[offsetEnd] != EndByte {
		return Data{}, fmt.Errorf("missing END byte: got 0x%02X", frame[offsetEnd])
	}

	flags := frame[offsetFlags]
	return Data{
		FlameDetected: flags&FlagFlame != 0,
		FanSpeed:      frame[offsetFanSpeed],
		Temperature:   uint16(frame[offsetTempHigh])<<8 | uint16(frame[offsetTempLow]),
		ErrorCode:     (flags >> errorCodeShift) & errorCodeMask,
	}, nil
}

// TextDecoder collects newline-terminated lines and parses each one
type TextDecoder struct {
	line []byte
}

// NewTextDecoder creates a new text line decoder
func NewTextDecoder() *TextDecoder {
	return &TextDecoder{line: make([]byte, 0, 32)}
}

// Reset drops any partially collected line
func (d *TextDecoder) Reset() {
	d.line = d.line[:0]
}

// DecodeByte processes a single byte
func (d *TextDecoder) DecodeByte(b byte) (*Frame, error) {
	if b != '\n' {
		if len(d.line) >= MaxLineLength {
			d.Reset()
			return nil, fmt.Errorf("line too long (max %d bytes)", MaxLineLength)
		}
		d.line = append(d.line, b)
		return nil, nil
	}

	line := bytes.TrimRight(d.line, "\r")
	if len(line) == 0 {
		d.Reset()
		return nil, nil
	}

	raw := make([]byte, len(d.line)+1)
	copy(raw, d.line)
	raw[len(d.line)] = '\n'
	d.Reset()

	data, err := ParseText(string(line))
	if err != nil {
		return nil, err
	}
	return &Frame{
		Protocol:  ProtocolText,
		Data:      data,
		Raw:       raw,
		Timestamp: time.Now(),
	}, nil
}

// ParseText parses a line of the form "F:1,S:45,T:31".
// Fan speed is clamped into 0-100 the way the bridge firmware does it.
func ParseText(line string) (Data, error) {
	var flame, speed, temp int
	if _, err := fmt.Sscanf(line, "F:%d,S:%d,T:%d", &flame, &speed, &temp); err != nil {
		return Data{}, fmt.Errorf("malformed text frame %q: %w", line, err)
	}
	if temp < 0 || temp > 0xFFFF {
		return Data{}, fmt.Errorf("temperature out of range: %d", temp)
	}

	switch {
	case speed < 0:
		speed = 0
	case speed > MaxFanSpeed:
		speed = MaxFanSpeed
	}

	return Data{
		FlameDetected: flame != 0,
		FanSpeed:      uint8(speed),
		Temperature:   uint16(temp),
	}, nil
}
