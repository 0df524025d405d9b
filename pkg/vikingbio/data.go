// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import (
	"fmt"
	"strings"
	"time"
)

// Protocol selects one of the two wire formats
type Protocol string

// Supported protocols
const (
	ProtocolBinary Protocol = "binary"
	ProtocolText   Protocol = "text"
)

// ErrUnknownProtocol is returned when a protocol name is not recognized
var ErrUnknownProtocol = fmt.Errorf("unknown protocol")

// ParseProtocol parses a protocol name (case-insensitive)
func ParseProtocol(name string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(name))) {
	case ProtocolBinary:
		return ProtocolBinary, nil
	case ProtocolText:
		return ProtocolText, nil
	default:
		return "", fmt.Errorf("%w: %q (use binary or text)", ErrUnknownProtocol, name)
	}
}

// Data is one burner status report as carried on the wire
type Data struct {
	FlameDetected bool
	FanSpeed      uint8  // percent, 0-100
	Temperature   uint16 // degrees Celsius
	ErrorCode     uint8  // flags bits 1-7, binary protocol only
}

// Normalize clamps the fan speed into 0-100, as the bridge firmware does
func (d Data) Normalize() Data {
	if d.FanSpeed > MaxFanSpeed {
		d.FanSpeed = MaxFanSpeed
	}
	return d
}

// Frame is a decoded frame together with its raw bytes
type Frame struct {
	Protocol  Protocol
	Data      Data
	Raw       []byte
	Timestamp time.Time
}
