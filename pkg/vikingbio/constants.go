// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package vikingbio implements the Viking Bio 20 burner serial protocol.
//
// The burner reports its state either as a fixed 6-byte binary frame or as
// an ASCII line. Neither form carries a checksum: receivers synchronize on
// the sentinel bytes and the fixed frame length alone.
package vikingbio

// Protocol framing bytes
const (
	StartByte = 0xAA
	EndByte   = 0x55
)

// Frame layout
const (
	FrameSize = 6

	offsetStart    = 0
	offsetFlags    = 1
	offsetFanSpeed = 2
	offsetTempHigh = 3
	offsetTempLow  = 4
	offsetEnd      = 5
)

// Flags byte
const (
	FlagFlame      = 0x01
	errorCodeShift = 1
	errorCodeMask  = 0x7F
)

// Serial line settings (8N1)
const (
	DefaultBaudRate = 9600
	DataBits        = 8
)

// Value limits
const (
	MaxFanSpeed        = 100
	AmbientTemperature = 20
	MaxLineLength      = 256
)
