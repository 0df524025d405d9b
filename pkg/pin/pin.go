// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pin derives the 8-digit commissioning PIN that Viking Bio bridge
// firmware computes from its MAC address on boot.
package pin

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ProductSalt must match the salt compiled into the bridge firmware
const ProductSalt = "VIKINGBIO-2026"

// MACSize is the length of a hardware address in bytes
const MACSize = 6

const pinModulus = 100_000_000

// ErrInvalidAddress is returned for anything that is not 12 hex digits
// once separators are removed
var ErrInvalidAddress = errors.New("invalid MAC address format")

// MAC is a 6-byte hardware address
type MAC [MACSize]byte

// ParseMAC accepts AA:BB:CC:DD:EE:FF, AA-BB-CC-DD-EE-FF or AABBCCDDEEFF
// in either case
func ParseMAC(s string) (MAC, error) {
	var mac MAC

	digits := strings.NewReplacer(":", "", "-", "", " ", "").Replace(s)
	if len(digits) != 2*MACSize {
		return mac, fmt.Errorf("%w: %s", ErrInvalidAddress, s)
	}
	if _, err := hex.Decode(mac[:], []byte(digits)); err != nil {
		return mac, fmt.Errorf("%w: %s", ErrInvalidAddress, s)
	}
	return mac, nil
}

// String returns the canonical AA:BB:CC:DD:EE:FF form
func (m MAC) String() string {
	parts := make([]string, MACSize)
	for i, b := range m {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// Derive computes SHA-256(mac || salt), takes the first 4 bytes as a
// big-endian uint32 and reduces it to 8 decimal digits
func Derive(mac MAC) string {
	input := make([]byte, 0, MACSize+len(ProductSalt))
	input = append(input, mac[:]...)
	input = append(input, ProductSalt...)

	digest := sha256.Sum256(input)
	value := binary.BigEndian.Uint32(digest[:4])
	return fmt.Sprintf("%08d", value%pinModulus)
}

// DeriveString parses s and derives its PIN
func DeriveString(s string) (pin string, mac MAC, err error) {
	mac, err = ParseMAC(s)
	if err != nil {
		return "", mac, err
	}
	return Derive(mac), mac, nil
}
