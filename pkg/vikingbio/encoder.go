// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import "strconv"

// Encoder serializes burner data into one wire format.
// A simulator picks one encoder at startup and keeps it for its lifetime.
type Encoder interface {
	Encode(d Data) []byte
	Protocol() Protocol
}

// NewEncoder returns the encoder for the given protocol
func NewEncoder(p Protocol) (Encoder, error) {
	switch p {
	case ProtocolBinary:
		return BinaryEncoder{}, nil
	case ProtocolText:
		return TextEncoder{}, nil
	default:
		_, err := ParseProtocol(string(p))
		return nil, err
	}
}

// BinaryEncoder produces the fixed 6-byte frame:
//
//	[0xAA] [FLAGS] [FAN_SPEED] [TEMP_HIGH] [TEMP_LOW] [0x55]
type BinaryEncoder struct{}

// Protocol returns ProtocolBinary
func (BinaryEncoder) Protocol() Protocol {
	return ProtocolBinary
}

// Encode encodes d into a binary frame
func (BinaryEncoder) Encode(d Data) []byte {
	return EncodeBinary(d)
}

// EncodeBinary encodes d into a binary frame
func EncodeBinary(d Data) []byte {
	frame := make([]byte, FrameSize)
	frame[offsetStart] = StartByte
	frame[offsetFlags] = encodeFlags(d)
	frame[offsetFanSpeed] = d.FanSpeed
	frame[offsetTempHigh] = byte(d.Temperature >> 8)
	frame[offsetTempLow] = byte(d.Temperature & 0xFF)
	frame[offsetEnd] = EndByte
	return frame
}

func encodeFlags(d Data) byte {
	var flags byte
	if d.FlameDetected {
		flags |= FlagFlame
	}
	flags |= (d.ErrorCode & errorCodeMask) << errorCodeShift
	return flags
}

// TextEncoder produces lines of the form "F:1,S:45,T:31\n"
type TextEncoder struct{}

// Protocol returns ProtocolText
func (TextEncoder) Protocol() Protocol {
	return ProtocolText
}

// Encode encodes d into a text line
func (TextEncoder) Encode(d Data) []byte {
	return EncodeText(d)
}

// EncodeText encodes d into a text line. The error code has no text form.
func EncodeText(d Data) []byte {
	line := make([]byte, 0, 24)
	line = append(line, "F:"...)
	if d.FlameDetected {
		line = append(line, '1')
	} else {
		line = append(line, '0')
	}
	line = append(line, ",S:"...)
	line = strconv.AppendUint(line, uint64(d.FanSpeed), 10)
	line = append(line, ",T:"...)
	line = strconv.AppendUint(line, uint64(d.Temperature), 10)
	return append(line, '\n')
}
