// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable line
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] %s %s  raw=%s\n",
		timestamp, strings.ToUpper(string(f.Protocol)), FormatData(f.Data), FormatRaw(f.Protocol, f.Raw))
}

// FormatData returns a compact summary of a status report
func FormatData(d Data) string {
	result := fmt.Sprintf("flame=%s fan=%d%% temp=%d°C", FormatFlame(d.FlameDetected), d.FanSpeed, d.Temperature)
	if d.ErrorCode != 0 {
		result += fmt.Sprintf(" error=0x%02X", d.ErrorCode)
	}
	return result
}

// FormatFlame returns "ON" or "OFF"
func FormatFlame(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// FormatRaw renders raw frame bytes: hex for binary, quoted for text
func FormatRaw(p Protocol, raw []byte) string {
	if p == ProtocolText {
		return fmt.Sprintf("%q", strings.TrimRight(string(raw), "\n"))
	}
	var sb strings.Builder
	for i, b := range raw {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
