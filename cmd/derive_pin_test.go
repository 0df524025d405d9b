// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/Thermoquad/vikingsim/pkg/pin"
)

func TestDerivePinCommand(t *testing.T) {
	out, err := executeRoot(t, "derive_pin", "aa-bb-cc-dd-ee-ff")
	if err != nil {
		t.Fatalf("derive_pin: %v", err)
	}
	want := "Device MAC:     AA:BB:CC:DD:EE:FF\nSetup PIN Code: 82474590\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestDerivePinCommand_InvalidMAC(t *testing.T) {
	_, err := executeRoot(t, "derive_pin", "12:34")
	if !errors.Is(err, pin.ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}
	if !strings.Contains(err.Error(), "12:34") {
		t.Errorf("error %q does not echo the input", err)
	}
}

func TestDerivePinCommand_RequiresArgument(t *testing.T) {
	if _, err := executeRoot(t, "derive_pin"); err == nil {
		t.Error("expected error without a MAC argument")
	}
}
